package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	mockArgs := m.Called(ctx, args)
	cmd := redis.NewStringCmd(ctx)
	if mockArgs.Get(0) != nil {
		cmd.SetErr(mockArgs.Error(0))
	} else {
		cmd.SetVal("1234567890-0")
	}
	return cmd
}

type MockSESClient struct {
	mock.Mock
}

func (m *MockSESClient) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sesv2.SendEmailOutput), args.Error(1)
}

func sampleReport(t *testing.T) Report {
	t.Helper()

	dir := t.TempDir()
	results := filepath.Join(dir, "output_bsr_prices.xlsx")
	failed := filepath.Join(dir, "failed_isbns.xlsx")
	require.NoError(t, os.WriteFile(results, []byte("results-bytes"), 0o644))
	require.NoError(t, os.WriteFile(failed, []byte("failed-bytes"), 0o644))

	return Report{
		RunID:             "run-1",
		Variant:           "lenient",
		Total:             3,
		FailedIdentifiers: []string{"222", "333"},
		StartedAt:         time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC),
		FinishedAt:        time.Date(2026, 10, 14, 9, 0, 5, 0, time.UTC),
		Attachments: []Attachment{
			{Name: "output_bsr_prices.xlsx", Path: results},
			{Name: "failed_isbns.xlsx", Path: failed},
		},
	}
}

func TestNoopNotifier(t *testing.T) {
	assert.NoError(t, Noop{}.Notify(context.Background(), Report{}))
}

func TestRedisNotifierPublishes(t *testing.T) {
	client := new(MockRedisClient)
	client.On("XAdd", mock.Anything, mock.MatchedBy(func(args *redis.XAddArgs) bool {
		if args.Stream != "stream:bsr_runs" {
			return false
		}
		var payload map[string]interface{}
		if err := json.Unmarshal([]byte(args.Values.(map[string]interface{})["data"].(string)), &payload); err != nil {
			return false
		}
		return payload["run_id"] == "run-1" &&
			payload["event_type"] == EventTypeBatchCompleted &&
			payload["failed"] == float64(2)
	})).Return(nil)

	n := NewRedisNotifier(client, "", discardLogger())
	require.NoError(t, n.Notify(context.Background(), sampleReport(t)))

	client.AssertExpectations(t)
}

func TestRedisNotifierError(t *testing.T) {
	client := new(MockRedisClient)
	client.On("XAdd", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	n := NewRedisNotifier(client, "stream:custom", discardLogger())
	err := n.Notify(context.Background(), sampleReport(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish to redis")
}

func TestSESNotifierSendsRawMessageWithAttachments(t *testing.T) {
	client := new(MockSESClient)
	var sent *sesv2.SendEmailInput
	messageID := "msg-1"
	client.On("SendEmail", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(*sesv2.SendEmailInput) }).
		Return(&sesv2.SendEmailOutput{MessageId: &messageID}, nil)

	n := NewSESNotifierWithClient(client, "bot@example.com", "BSR Bot", []string{"ops@example.com"}, discardLogger())
	require.NoError(t, n.Notify(context.Background(), sampleReport(t)))

	require.NotNil(t, sent)
	assert.Equal(t, []string{"ops@example.com"}, sent.Destination.ToAddresses)
	require.NotNil(t, sent.Content.Raw)

	msg, err := mail.ReadMessage(strings.NewReader(string(sent.Content.Raw.Data)))
	require.NoError(t, err)
	assert.Equal(t, "BSR results: 3 ISBNs, 2 failed", msg.Header.Get("Subject"))

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])
	var filenames []string
	var text string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if name := part.FileName(); name != "" {
			filenames = append(filenames, name)
			continue
		}
		b, err := io.ReadAll(part)
		require.NoError(t, err)
		text = string(b)
	}

	assert.Equal(t, []string{"output_bsr_prices.xlsx", "failed_isbns.xlsx"}, filenames)
	assert.Contains(t, text, "Failed ISBNs:")
	assert.Contains(t, text, "333")
}

func TestSESNotifierMissingAttachment(t *testing.T) {
	client := new(MockSESClient)
	n := NewSESNotifierWithClient(client, "bot@example.com", "", []string{"ops@example.com"}, discardLogger())

	report := Report{RunID: "r", Attachments: []Attachment{{Name: "x.xlsx", Path: filepath.Join(t.TempDir(), "gone.xlsx")}}}
	err := n.Notify(context.Background(), report)

	require.Error(t, err)
	client.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
}

func TestSESNotifierSendError(t *testing.T) {
	client := new(MockSESClient)
	client.On("SendEmail", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	n := NewSESNotifierWithClient(client, "bot@example.com", "", []string{"ops@example.com"}, discardLogger())
	err := n.Notify(context.Background(), Report{RunID: "r"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SES SendEmail")
}

func TestWriteBase64Lines(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, writeBase64Lines(&sb, make([]byte, 100)))

	lines := strings.Split(strings.TrimRight(sb.String(), "\r\n"), "\r\n")
	require.Len(t, lines, 2)
	assert.Len(t, lines[0], 76)
}
