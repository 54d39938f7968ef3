package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SESClient is the subset of the SES v2 client used here.
type SESClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESNotifier mails the run summary with the output spreadsheets attached.
type SESNotifier struct {
	client   SESClient
	from     string
	fromName string
	to       []string
	logger   *slog.Logger
}

func NewSESNotifier(ctx context.Context, region, from, fromName string, to []string, logger *slog.Logger) (*SESNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return NewSESNotifierWithClient(sesv2.NewFromConfig(cfg), from, fromName, to, logger), nil
}

func NewSESNotifierWithClient(client SESClient, from, fromName string, to []string, logger *slog.Logger) *SESNotifier {
	return &SESNotifier{
		client:   client,
		from:     from,
		fromName: fromName,
		to:       to,
		logger:   logger.With("component", "ses_notifier"),
	}
}

func (n *SESNotifier) Notify(ctx context.Context, report Report) error {
	raw, err := n.buildMessage(report)
	if err != nil {
		return err
	}

	out, err := n.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.sender()),
		Destination: &types.Destination{
			ToAddresses: n.to,
		},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: raw},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}

	var messageID string
	if out != nil {
		messageID = aws.ToString(out.MessageId)
	}
	n.logger.Info("run summary mailed", "run_id", report.RunID, "message_id", messageID, "recipients", len(n.to))
	return nil
}

func (n *SESNotifier) sender() string {
	if n.fromName == "" {
		return n.from
	}
	return fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", n.fromName), n.from)
}

func (n *SESNotifier) buildMessage(report Report) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", n.sender())
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(n.to, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject(report)))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mw.Boundary())

	textPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=utf-8"},
		"Content-Transfer-Encoding": {"8bit"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create text part: %w", err)
	}
	textPart.Write([]byte(body(report)))

	for _, a := range report.Attachments {
		data, err := os.ReadFile(a.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment %s: %w", a.Name, err)
		}

		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {fmt.Sprintf("%s; name=%q", xlsxContentType, a.Name)},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", a.Name)},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create attachment part: %w", err)
		}
		if err := writeBase64Lines(part, data); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close message: %w", err)
	}
	return buf.Bytes(), nil
}

func subject(r Report) string {
	return fmt.Sprintf("BSR results: %d ISBNs, %d failed", r.Total, len(r.FailedIdentifiers))
}

func body(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (%s) finished at %s.\r\n\r\n", r.RunID, r.Variant, r.FinishedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Processed: %d\r\nFailed: %d\r\n", r.Total, len(r.FailedIdentifiers))
	if len(r.FailedIdentifiers) > 0 {
		b.WriteString("\r\nFailed ISBNs:\r\n")
		for _, id := range r.FailedIdentifiers {
			fmt.Fprintf(&b, "  %s\r\n", id)
		}
	}
	return b.String()
}

// writeBase64Lines wraps the encoding at 76 columns as RFC 2045 requires.
func writeBase64Lines(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 0 {
		n := 76
		if len(encoded) < n {
			n = len(encoded)
		}
		if _, err := w.Write([]byte(encoded[:n] + "\r\n")); err != nil {
			return fmt.Errorf("failed to write attachment: %w", err)
		}
		encoded = encoded[n:]
	}
	return nil
}
