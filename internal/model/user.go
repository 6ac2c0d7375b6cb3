package model

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	State int    `json:"state"`
	Ctime int64  `json:"ctime"`
	Mtime int64  `json:"mtime"`
}
