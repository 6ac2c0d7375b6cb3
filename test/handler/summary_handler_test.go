package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docport/docport/internal/pkg/errcode"
)

func TestSummaryUnavailableProvider(t *testing.T) {
	env := setupEnvWithProvider(t, &unavailableProvider{})

	userID, token := loginAs(t, env, "owner-"+newTestID()+"@example.com")
	tenantID := env.addTenantMember(t, userID)
	docID := uploadDocument(t, env, token, tenantID, "contract.pdf", "contract body")

	result := doJSON(t, env.router, http.MethodPost, "/api/v1/documents/"+docID+"/shares", token,
		map[string]string{"recipient_email": "reader@example.com"})
	require.Equal(t, 0, result.Code)
	shareID, _ := result.Data["id"].(string)

	code := env.sender.lastCode()
	result = doJSON(t, env.router, http.MethodPost, "/api/v1/public/shares/"+shareID+"/verify", "",
		map[string]string{"code": code})
	require.Equal(t, 0, result.Code)
	grantToken, _ := result.Data["grant_token"].(string)

	result = doJSON(t, env.router, http.MethodGet, "/api/v1/public/shares/"+shareID+"/summary", grantToken, nil)
	require.Equal(t, errcode.ErrAIUnavailable, result.Code)
}
