package hen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// loginClient implements LoginChecker against ldaplogincheckcgi.py.
type loginClient struct {
	client   *http.Client
	endpoint string
}

func (c *loginClient) CheckLogin(ctx context.Context, username, password string) (*Account, error) {
	defer observeBackend(ctx, "hen.check_login")()

	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login check: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login check: unexpected status %d", resp.StatusCode)
	}

	var doc ldapResponse
	if err := decodeXML(io.LimitReader(resp.Body, 1<<20), &doc); err != nil {
		// The script prints nothing when a parameter is missing.
		if errors.Is(err, io.EOF) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if !strings.EqualFold(strings.TrimSpace(doc.ValidLogin), "true") {
		return nil, ErrInvalidCredentials
	}

	account := &Account{Username: username}
	for _, g := range doc.Groups {
		if g.ID != "" {
			account.Groups = append(account.Groups, g.ID)
		}
	}
	return account, nil
}
