package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/teemow/queryexport/internal/artifact"
	"github.com/teemow/queryexport/internal/config"
)

type fakeSender struct {
	err  error
	sent []*mail.Msg
}

func (f *fakeSender) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, messages...)
	return nil
}

func testConfig() config.MailConfig {
	return config.MailConfig{
		Sender:     "reports@example.com",
		Recipients: []string{"ops@example.com", "finance@example.com"},
		Username:   "reports@example.com",
		Password:   "secret",
		Host:       "smtp.example.com",
		Port:       465,
		Timeout:    5 * time.Second,
	}
}

func testArtifact(t *testing.T) *artifact.Artifact {
	t.Helper()

	dir := t.TempDir()
	name := "rds_query_result_20240131_142500.xlsx"
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("PK-fake-xlsx-bytes"), 0o600))

	return &artifact.Artifact{
		Path:      path,
		Filename:  name,
		Timestamp: "20240131_142500",
		RowCount:  2,
	}
}

func newTestAgent(s sender, setupErr error) *Agent {
	a := NewAgent(testConfig(), nil)
	a.now = func() time.Time { return time.Date(2024, 1, 31, 14, 25, 3, 0, time.UTC) }
	a.newSender = func(config.MailConfig) (sender, error) {
		if setupErr != nil {
			return nil, setupErr
		}
		return s, nil
	}
	return a
}

func render(t *testing.T, msg *mail.Msg) string {
	t.Helper()

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestAgent_Compose(t *testing.T) {
	art := testArtifact(t)
	a := newTestAgent(&fakeSender{}, nil)

	msg, err := a.Compose(art, "Monthly numbers")
	require.NoError(t, err)

	raw := render(t, msg)
	assert.Contains(t, raw, "Subject: Monthly numbers")
	assert.Contains(t, raw, "<reports@example.com>")
	assert.Contains(t, raw, "<ops@example.com>")
	assert.Contains(t, raw, "<finance@example.com>")
	assert.Contains(t, raw, "text/html")
	assert.Contains(t, raw, `filename="rds_query_result_20240131_142500.xlsx"`)
	assert.Contains(t, raw, "Content-Disposition: attachment")
	assert.Contains(t, raw, "Content-Transfer-Encoding: base64")
	assert.Contains(t, raw, base64.StdEncoding.EncodeToString([]byte("PK-fake-xlsx-bytes")))
}

func TestAgent_Compose_BodyCarriesSendTime(t *testing.T) {
	art := testArtifact(t)
	a := newTestAgent(&fakeSender{}, nil)
	a.cfg.Recipients = []string{"ops@example.com"}

	msg, err := a.Compose(art, "s")
	require.NoError(t, err)

	var body bytes.Buffer
	for _, part := range msg.GetParts() {
		content, err := part.GetContent()
		require.NoError(t, err)
		body.Write(content)
	}
	assert.Contains(t, body.String(), "2024-01-31 14:25:03")
	assert.Contains(t, body.String(), "rds_query_result_20240131_142500.xlsx")
}

func TestAgent_Compose_DefaultSubject(t *testing.T) {
	art := testArtifact(t)
	a := newTestAgent(&fakeSender{}, nil)

	for _, subject := range []string{"", "   "} {
		msg, err := a.Compose(art, subject)
		require.NoError(t, err)
		assert.Equal(t, []string{DefaultSubject("20240131_142500")}, msg.GetGenHeader(mail.HeaderSubject))
	}
}

func TestAgent_Compose_Errors(t *testing.T) {
	a := newTestAgent(&fakeSender{}, nil)

	_, err := a.Compose(nil, "")
	assert.Error(t, err)

	missing := &artifact.Artifact{Path: filepath.Join(t.TempDir(), "gone.xlsx"), Filename: "gone.xlsx"}
	_, err = a.Compose(missing, "")
	assert.Error(t, err)

	a.cfg.Sender = "not an address"
	_, err = a.Compose(testArtifact(t), "")
	assert.Error(t, err)
}

func TestAgent_Send(t *testing.T) {
	art := testArtifact(t)
	fs := &fakeSender{}
	a := newTestAgent(fs, nil)

	assert.True(t, a.Send(context.Background(), art, ""))
	require.Len(t, fs.sent, 1)
	assert.True(t, strings.HasPrefix(fs.sent[0].GetGenHeader(mail.HeaderSubject)[0], "Query results"))
}

func TestAgent_Send_Failures(t *testing.T) {
	tests := []struct {
		name     string
		sender   *fakeSender
		setupErr error
		art      func(t *testing.T) *artifact.Artifact
	}{
		{
			name:   "relay rejects",
			sender: &fakeSender{err: errors.New("535 authentication failed")},
			art:    testArtifact,
		},
		{
			name:     "client setup fails",
			sender:   &fakeSender{},
			setupErr: errors.New("invalid host"),
			art:      testArtifact,
		},
		{
			name:   "attachment missing",
			sender: &fakeSender{},
			art: func(t *testing.T) *artifact.Artifact {
				return &artifact.Artifact{Path: filepath.Join(t.TempDir(), "x.xlsx"), Filename: "x.xlsx"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAgent(tt.sender, tt.setupErr)
			assert.False(t, a.Send(context.Background(), tt.art(t), "subject"))
			assert.Empty(t, tt.sender.sent)
		})
	}
}

func TestAgent_Recipients(t *testing.T) {
	a := NewAgent(testConfig(), nil)

	got := a.Recipients()
	assert.Equal(t, []string{"ops@example.com", "finance@example.com"}, got)

	got[0] = "changed@example.com"
	assert.Equal(t, "ops@example.com", a.Recipients()[0])
}

func TestNewSMTPClient(t *testing.T) {
	cfg := testConfig()
	c, err := newSMTPClient(cfg)
	require.NoError(t, err)
	assert.NotNil(t, c)

	cfg.Port = 587
	c, err = newSMTPClient(cfg)
	require.NoError(t, err)
	assert.NotNil(t, c)
}
