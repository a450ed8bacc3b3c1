package gcs

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/angelmondragon/catalog-admin/pkg/config"
)

const scope = "https://www.googleapis.com/auth/devstorage.read_write"

// credentialsFor picks credentials in order: inline service account JSON, a
// credentials file, then Application Default Credentials.
func credentialsFor(ctx context.Context, httpClient *http.Client, gcp config.GCPConfig) (oauth2.TokenSource, error) {
	// token exchanges reuse the storage client's timeout
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)

	raw := []byte(gcp.CredentialsJSON)
	if len(raw) == 0 && gcp.ApplicationCredentials != "" {
		var err error
		if raw, err = os.ReadFile(gcp.ApplicationCredentials); err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
	}
	if len(raw) > 0 {
		jwtCfg, err := google.JWTConfigFromJSON(raw, scope)
		if err != nil {
			return nil, fmt.Errorf("parsing service account credentials: %w", err)
		}
		return jwtCfg.TokenSource(ctx), nil
	}

	ts, err := google.DefaultTokenSource(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("default gcp credentials: %w", err)
	}
	return ts, nil
}
