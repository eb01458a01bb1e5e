package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dataacquisition/das/internal/resilience"
)

// OrgClient asks the user-management service which organizations a token holder belongs to.
type OrgClient struct {
	client  *resilience.Client
	baseURL string
}

// NewOrgClient creates a client for the user-management service at baseURL.
func NewOrgClient(client *resilience.Client, baseURL string) *OrgClient {
	return &OrgClient{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type orgPermission struct {
	Organization struct {
		Metadata struct {
			GUID string `json:"guid"`
		} `json:"metadata"`
	} `json:"organization"`
}

// Organizations returns the organization GUIDs visible to the bearer of token.
func (c *OrgClient) Organizations(ctx context.Context, token string) ([]string, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	var perms []orgPermission
	if err := c.client.GetJSON(ctx, c.baseURL+"/rest/orgs/permissions", header, &perms); err != nil {
		return nil, err
	}

	orgs := make([]string, 0, len(perms))
	for _, p := range perms {
		if guid := p.Organization.Metadata.GUID; guid != "" {
			orgs = append(orgs, guid)
		}
	}
	return orgs, nil
}
