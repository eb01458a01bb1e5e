package auth

import (
	"context"
	"fmt"

	"github.com/dataacquisition/das/internal/resilience"
)

// verificationKeyResponse is the UAA /token_key document.
type verificationKeyResponse struct {
	Value string `json:"value"`
}

// FetchVerificationKey downloads the PEM verification key published at url.
func FetchVerificationKey(ctx context.Context, client *resilience.Client, url string) (string, error) {
	var resp verificationKeyResponse
	if err := client.GetJSON(ctx, url, nil, &resp); err != nil {
		return "", fmt.Errorf("fetching verification key: %w", err)
	}
	if resp.Value == "" {
		return "", fmt.Errorf("%w: empty key document from %s", ErrInvalidKey, url)
	}
	return resp.Value, nil
}
