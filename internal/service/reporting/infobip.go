package reporting

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kotshq/call-insights/internal/infrastructure/config"
)

// InfobipSender delivers reports through the Infobip email API. Requests are
// multipart/form-data against {base}/email/3/send, matching the API's bulk
// send contract.
type InfobipSender struct {
	httpc     *http.Client
	logger    *slog.Logger
	baseURL   string
	authz     string
	fromEmail string
	fromName  string
}

// NewInfobipSender builds a sender from configuration. The API key may be
// supplied with or without its "App " scheme prefix.
func NewInfobipSender(cfg config.InfobipConfig, logger *slog.Logger) (*InfobipSender, error) {
	if cfg.APIKey == "" || cfg.BaseURL == "" || cfg.FromEmail == "" {
		return nil, fmt.Errorf("infobip configuration incomplete")
	}

	authz := cfg.APIKey
	if !strings.HasPrefix(authz, "App ") {
		authz = "App " + authz
	}

	return &InfobipSender{
		httpc:     &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		authz:     authz,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}, nil
}

// Send posts one message, with its attachment when present.
func (s *InfobipSender) Send(ctx context.Context, msg Message) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fields := map[string]string{
		"from":    fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail),
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTML,
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return fmt.Errorf("writing form field %s: %w", name, err)
		}
	}

	if att := msg.Attachment; att != nil {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="attachment"; filename="%s"`, att.Filename))
		hdr.Set("Content-Type", att.ContentType)
		part, err := w.CreatePart(hdr)
		if err != nil {
			return fmt.Errorf("creating attachment part: %w", err)
		}
		if _, err := part.Write(att.Data); err != nil {
			return fmt.Errorf("writing attachment: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing form body: %w", err)
	}

	url := s.baseURL + "/email/3/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", s.authz)
	req.Header.Set("Content-Type", w.FormDataContentType())

	s.logger.Info("sending report via infobip", "to", msg.To, "subject", msg.Subject,
		"attachment", msg.Attachment != nil)

	resp, err := s.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("posting to infobip: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("infobip returned %d: %s", resp.StatusCode, string(detail))
	}

	s.logger.Info("report sent via infobip", "to", msg.To, "status", resp.StatusCode)
	return nil
}
