// Package mail fetches job alert emails over IMAP and extracts their
// HTML bodies.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"
)

const maxBodySize = 25 << 20

// Config describes the mailbox to read alerts from.
type Config struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Folder     string `mapstructure:"folder"`
	SearchFrom string `mapstructure:"search_from"`
	SearchDays int    `mapstructure:"search_days"`
	UnreadOnly bool   `mapstructure:"unread_only"`
}

func (c *Config) normalize() {
	if c.Port == 0 {
		c.Port = 993
	}
	if c.Folder == "" {
		c.Folder = "INBOX"
	}
	if c.SearchFrom == "" {
		c.SearchFrom = "linkedin.com"
	}
	if c.SearchDays == 0 {
		c.SearchDays = 7
	}
}

// Reader downloads alert emails and returns their HTML bodies.
type Reader struct {
	cfg    Config
	logger *zap.Logger
}

func NewReader(cfg Config, logger *zap.Logger) (*Reader, error) {
	cfg.normalize()
	if cfg.Host == "" {
		return nil, errors.New("imap host is required")
	}
	if cfg.User == "" || cfg.Password == "" {
		return nil, errors.New("imap user and password are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{cfg: cfg, logger: logger}, nil
}

// closeOnCancel tears the connection down when ctx is cancelled so a hung
// server cannot block the fetch forever. The returned stop func releases
// the watcher goroutine on the normal return path.
func closeOnCancel(ctx context.Context, closeConn func()) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			closeConn()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// FetchHTML connects, searches for matching alert emails and returns the
// HTML body of each. Messages without an HTML part are skipped. Fetching
// uses BODY.PEEK[] so messages are not marked seen.
func (r *Reader) FetchHTML(ctx context.Context) ([]string, error) {
	addr := fmt.Sprintf("%s:%d", r.cfg.Host, r.cfg.Port)
	client, err := imapclient.DialTLS(addr, &imapclient.Options{
		TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12, ServerName: r.cfg.Host},
	})
	if err != nil {
		return nil, fmt.Errorf("imap dial %s: %w", addr, err)
	}
	defer func() {
		if err := client.Logout().Wait(); err != nil {
			r.logger.Debug("imap logout", zap.Error(err))
		}
		_ = client.Close()
	}()

	stop := closeOnCancel(ctx, func() { _ = client.Close() })
	defer stop()

	if err := client.Login(r.cfg.User, r.cfg.Password).Wait(); err != nil {
		return nil, fmt.Errorf("imap login: %w", err)
	}

	if _, err := client.Select(r.cfg.Folder, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		return nil, fmt.Errorf("imap select %s: %w", r.cfg.Folder, err)
	}

	uids, err := r.search(client)
	if err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		r.logger.Info("no alert emails found",
			zap.String("from", r.cfg.SearchFrom),
			zap.Int("search_days", r.cfg.SearchDays),
		)
		return []string{}, nil
	}

	htmls, err := r.fetchBodies(ctx, client, uids)
	if err != nil {
		return nil, err
	}

	r.logger.Info("fetched alert emails",
		zap.Int("messages", len(uids)),
		zap.Int("with_html", len(htmls)),
	)
	return htmls, nil
}

func (r *Reader) search(client *imapclient.Client) ([]imap.UID, error) {
	criteria := &imap.SearchCriteria{
		Header: []imap.SearchCriteriaHeaderField{
			{Key: "From", Value: r.cfg.SearchFrom},
		},
	}
	if r.cfg.SearchDays > 0 {
		criteria.Since = time.Now().AddDate(0, 0, -r.cfg.SearchDays)
	}
	if r.cfg.UnreadOnly {
		criteria.NotFlag = []imap.Flag{imap.FlagSeen}
	}

	data, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	return data.AllUIDs(), nil
}

func (r *Reader) fetchBodies(ctx context.Context, client *imapclient.Client, uids []imap.UID) ([]string, error) {
	bodyAll := &imap.FetchItemBodySection{
		Specifier: imap.PartSpecifierNone,
		Peek:      true,
	}
	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = fetchCmd.Close() }()

	htmls := make([]string, 0, len(uids))
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}

		buf, err := msgData.Collect()
		if err != nil {
			return nil, fmt.Errorf("imap fetch collect: %w", err)
		}

		raw := buf.FindBodySection(bodyAll)
		if len(raw) == 0 {
			continue
		}
		if html := ExtractHTMLPart(raw); html != "" {
			htmls = append(htmls, html)
		}
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("imap fetch close: %w", err)
	}
	return htmls, nil
}

// ExtractHTMLPart walks an RFC822 message and returns its text/html body,
// decoded from its transfer encoding. It returns "" when no HTML part
// exists or the message cannot be parsed.
func ExtractHTMLPart(raw []byte) string {
	msg, err := netmail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return ""
	}

	body, _ := io.ReadAll(io.LimitReader(msg.Body, maxBodySize))
	return htmlFromMIME(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), body)
}

func htmlFromMIME(contentType, cte string, body []byte) string {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	mediaType = strings.ToLower(mediaType)

	switch {
	case strings.HasPrefix(mediaType, "text/html"):
		return string(decodeTransferEncoding(body, cte))
	case strings.HasPrefix(mediaType, "multipart/"):
		boundary := params["boundary"]
		if boundary == "" {
			return ""
		}
		mr := multipart.NewReader(bytes.NewReader(body), boundary)
		for {
			part, err := mr.NextPart()
			if err != nil {
				return ""
			}
			partBody, _ := io.ReadAll(io.LimitReader(part, maxBodySize))
			html := htmlFromMIME(
				part.Header.Get("Content-Type"),
				part.Header.Get("Content-Transfer-Encoding"),
				partBody,
			)
			if html != "" {
				return html
			}
		}
	default:
		return ""
	}
}

func decodeTransferEncoding(b []byte, cte string) []byte {
	switch strings.ToLower(strings.TrimSpace(cte)) {
	case "base64":
		dec := base64.NewDecoder(base64.StdEncoding, bytes.NewReader(b))
		out, _ := io.ReadAll(io.LimitReader(dec, maxBodySize))
		return out
	case "quoted-printable":
		dec := quotedprintable.NewReader(bytes.NewReader(b))
		out, _ := io.ReadAll(io.LimitReader(dec, maxBodySize))
		return out
	default:
		return b
	}
}
