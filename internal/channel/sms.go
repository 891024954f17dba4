package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/capitalize-ai/agent-platform/internal/model"
)

const twilioBaseURL = "https://api.twilio.com/2010-04-01"

// SMSSender delivers messages via the Twilio SMS API.
type SMSSender struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient *http.Client
}

// NewSMSSender builds an SMS sender from a channel configuration.
func NewSMSSender(config model.JSONMap) (Sender, error) {
	sid := config.GetString("twilio_account_sid")
	token := config.GetString("twilio_auth_token")
	if sid == "" || token == "" {
		return nil, errors.New("sms configuration is missing Twilio credentials")
	}
	return &SMSSender{
		accountSID: sid,
		authToken:  token,
		fromNumber: config.GetString("from_number"),
		baseURL:    twilioBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// Send delivers the message as an SMS to the phone number in channelUserID.
func (s *SMSSender) Send(ctx context.Context, channelUserID, content string, metadata model.JSONMap) error {
	form := url.Values{
		"To":   {channelUserID},
		"From": {s.fromNumber},
		"Body": {content},
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("twilio returned status %d", resp.StatusCode)
	}
	return nil
}
