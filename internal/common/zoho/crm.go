package zoho

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	httpclient "cotizador/internal/common/http"
)

const defaultBaseURL = "https://www.zohoapis.com/crm/v3"

// CRMClient talks to the Zoho CRM Leads module.
type CRMClient struct {
	oauthToken string
	baseURL    string
	http       *httpclient.Client
}

// Lead is the subset of Zoho lead fields filled by the quoting flow.
type Lead struct {
	ID          string `json:"id,omitempty"`
	LastName    string `json:"Last_Name"`
	FirstName   string `json:"First_Name,omitempty"`
	Email       string `json:"Email,omitempty"`
	Mobile      string `json:"Mobile,omitempty"`
	Source      string `json:"Lead_Source,omitempty"`
	Description string `json:"Description,omitempty"`
}

type upsertResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"data"`
}

func NewCRMClient(baseURL, oauthToken string) *CRMClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &CRMClient{
		oauthToken: oauthToken,
		baseURL:    baseURL,
		http:       httpclient.NewClient(30 * time.Second),
	}
}

func (c *CRMClient) headers() map[string]string {
	return map[string]string{"Authorization": "Zoho-oauthtoken " + c.oauthToken}
}

// CreateLead inserts a lead and returns its Zoho ID.
func (c *CRMClient) CreateLead(ctx context.Context, lead *Lead) (string, error) {
	payload := map[string]interface{}{"data": []Lead{*lead}}

	var resp upsertResponse
	err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/Leads", c.headers(), payload, &resp,
		http.StatusCreated, http.StatusOK)
	if err != nil {
		return "", fmt.Errorf("failed to create lead: %w", err)
	}

	if len(resp.Data) == 0 {
		return "", fmt.Errorf("no data in response")
	}
	if resp.Data[0].Status != "success" {
		return "", fmt.Errorf("lead creation failed: %s", resp.Data[0].Message)
	}
	return resp.Data[0].Details.ID, nil
}

// SearchLeadsByEmail returns the leads already registered with email.
// Zoho answers 204 with an empty body when nothing matches.
func (c *CRMClient) SearchLeadsByEmail(ctx context.Context, email string) ([]Lead, error) {
	endpoint := fmt.Sprintf("%s/Leads/search?email=%s", c.baseURL, url.QueryEscape(email))

	var result struct {
		Data []Lead `json:"data"`
	}
	err := c.http.DoJSON(ctx, http.MethodGet, endpoint, c.headers(), nil, &result,
		http.StatusOK, http.StatusNoContent)
	if err != nil {
		return nil, fmt.Errorf("failed to search leads: %w", err)
	}
	return result.Data, nil
}
