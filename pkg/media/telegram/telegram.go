// Package telegram is the Bot API client the media pipeline posts through.
// Responses are decoded here into media.Ref values; the raw message shapes
// never leave this package.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/papercomputeco/yearbook/pkg/media"
)

// DefaultAPIBase is the public Bot API host.
const DefaultAPIBase = "https://api.telegram.org"

// MaxGroupSize is the largest album the Bot API accepts.
const MaxGroupSize = 10

// Config holds configuration for the Bot API client.
type Config struct {
	// Token is the bot credential.
	Token string

	// ChatID is the recipient every post goes to.
	ChatID string

	// APIBase overrides DefaultAPIBase.
	APIBase string

	// HTTPClient overrides the default client. No timeout is imposed.
	HTTPClient *http.Client
}

// Client implements media.Uploader and media.Locator over the Bot API.
type Client struct {
	token      string
	chatID     string
	apiBase    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient returns media.ErrNotConfigured unless both the token and the
// chat id are set.
func NewClient(c Config, logger *slog.Logger) (*Client, error) {
	if c.Token == "" || c.ChatID == "" {
		return nil, media.ErrNotConfigured
	}

	base := strings.TrimRight(c.APIBase, "/")
	if base == "" {
		base = DefaultAPIBase
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		token:      c.Token,
		chatID:     c.ChatID,
		apiBase:    base,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// apiResponse is the envelope of every Bot API answer.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

type photoSize struct {
	FileID   string `json:"file_id"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	FileSize int64  `json:"file_size"`
}

type fileObject struct {
	FileID   string `json:"file_id"`
	FilePath string `json:"file_path"`
}

type message struct {
	MessageID int64       `json:"message_id"`
	Photo     []photoSize `json:"photo"`
	Video     *fileObject `json:"video"`
}

// ref decodes whichever media field the message carries. Photos come in
// ascending size variants; the last one is the largest.
func (m *message) ref() (media.Ref, bool) {
	switch {
	case len(m.Photo) > 0:
		return media.Ref{Kind: media.KindPhoto, FileID: m.Photo[len(m.Photo)-1].FileID}, true
	case m.Video != nil && m.Video.FileID != "":
		return media.Ref{Kind: media.KindVideo, FileID: m.Video.FileID}, true
	}
	return media.Ref{}, false
}

// inputMedia is one element of a sendMediaGroup request.
type inputMedia struct {
	Type    media.Kind `json:"type"`
	Media   string     `json:"media"`
	Caption string     `json:"caption,omitempty"`
}

// SendMessage posts text to the chat.
func (c *Client) SendMessage(ctx context.Context, text string) (int64, error) {
	body, err := json.Marshal(map[string]string{
		"chat_id": c.chatID,
		"text":    text,
	})
	if err != nil {
		return 0, fmt.Errorf("encoding sendMessage: %w", err)
	}

	var msg message
	if err := c.call(ctx, "sendMessage", "application/json", bytes.NewReader(body), &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// SendMedia dispatches to SendVideo or SendPhoto by the file's kind.
func (c *Client) SendMedia(ctx context.Context, file media.File, caption string) (int64, media.Ref, error) {
	if file.IsVideo() {
		return c.SendVideo(ctx, file, caption)
	}
	return c.SendPhoto(ctx, file, caption)
}

// SendPhoto uploads one photo with a caption.
func (c *Client) SendPhoto(ctx context.Context, file media.File, caption string) (int64, media.Ref, error) {
	return c.sendSingle(ctx, "sendPhoto", string(media.KindPhoto), file, caption)
}

// SendVideo uploads one video with a caption.
func (c *Client) SendVideo(ctx context.Context, file media.File, caption string) (int64, media.Ref, error) {
	return c.sendSingle(ctx, "sendVideo", string(media.KindVideo), file, caption)
}

func (c *Client) sendSingle(ctx context.Context, method, field string, file media.File, caption string) (int64, media.Ref, error) {
	form := newForm()
	form.field("chat_id", c.chatID)
	form.field("caption", caption)
	form.file(field, file)

	var msg message
	if err := c.callMultipart(ctx, method, form, &msg); err != nil {
		return 0, media.Ref{}, err
	}

	ref, ok := msg.ref()
	if !ok {
		return 0, media.Ref{}, &media.ProviderError{Method: method, Description: "response carried no file"}
	}
	return msg.MessageID, ref, nil
}

// SendMediaGroup uploads 2 to MaxGroupSize files as one album in a single
// request. Files are attached as media0..mediaN and refs are read back
// positionally.
func (c *Client) SendMediaGroup(ctx context.Context, items []media.GroupItem) (int64, []media.Ref, error) {
	const method = "sendMediaGroup"

	if len(items) < 2 || len(items) > MaxGroupSize {
		return 0, nil, fmt.Errorf("%s needs 2 to %d files, got %d", method, MaxGroupSize, len(items))
	}

	group := make([]inputMedia, len(items))
	form := newForm()
	form.field("chat_id", c.chatID)
	for i, item := range items {
		name := "media" + strconv.Itoa(i)
		group[i] = inputMedia{
			Type:    item.File.Kind(),
			Media:   "attach://" + name,
			Caption: item.Caption,
		}
		form.file(name, item.File)
	}

	groupJSON, err := json.Marshal(group)
	if err != nil {
		return 0, nil, fmt.Errorf("encoding %s: %w", method, err)
	}
	form.field("media", string(groupJSON))

	var msgs []message
	if err := c.callMultipart(ctx, method, form, &msgs); err != nil {
		return 0, nil, err
	}
	if len(msgs) == 0 {
		return 0, nil, &media.ProviderError{Method: method, Description: "response carried no messages"}
	}

	refs := make([]media.Ref, len(msgs))
	for i := range msgs {
		ref, ok := msgs[i].ref()
		if !ok {
			return 0, nil, &media.ProviderError{
				Method:      method,
				Description: fmt.Sprintf("message %d carried no file", i),
			}
		}
		refs[i] = ref
	}

	return msgs[0].MessageID, refs, nil
}

// GetFile looks up the provider-internal path of fileID.
func (c *Client) GetFile(ctx context.Context, fileID string) (string, error) {
	const method = "getFile"

	target := c.methodURL(method) + "?" + url.Values{"file_id": {fileID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("creating %s request: %w", method, err)
	}

	var file fileObject
	if err := c.do(req, method, &file); err != nil {
		return "", err
	}
	return file.FilePath, nil
}

// FileURL composes the direct download URL of a path returned by GetFile.
// Such URLs stay valid for at least an hour.
func (c *Client) FileURL(path string) string {
	return c.apiBase + "/file/bot" + c.token + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) methodURL(method string) string {
	return c.apiBase + "/bot" + c.token + "/" + method
}

func (c *Client) call(ctx context.Context, method, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), body)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, method, out)
}

// callMultipart streams the form so large videos are never held in memory.
func (c *Client) callMultipart(ctx context.Context, method string, f *form, out any) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(f.write(mw))
	}()

	err := c.call(ctx, method, mw.FormDataContentType(), pr, out)
	// Unblock the writer if the request ended before the body was consumed.
	pr.CloseWithError(io.ErrClosedPipe)
	return err
}

func (c *Client) do(req *http.Request, method string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", media.ErrTransport, method, redact(err, c.token))
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%w: %s: decoding response (status %d): %w", media.ErrTransport, method, resp.StatusCode, err)
	}

	if !envelope.OK {
		c.logger.Debug("bot api refused request",
			"method", method,
			"code", envelope.ErrorCode,
			"description", envelope.Description,
		)
		return &media.ProviderError{
			Method:      method,
			Code:        envelope.ErrorCode,
			Description: envelope.Description,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return &media.ProviderError{Method: method, Description: "unexpected result: " + err.Error()}
	}
	return nil
}

// redact keeps the bot token out of transport errors, which embed the
// request URL.
func redact(err error, token string) error {
	msg := err.Error()
	if !strings.Contains(msg, token) {
		return err
	}
	return redactedError{msg: strings.ReplaceAll(msg, token, "<token>"), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e redactedError) Error() string { return e.msg }

func (e redactedError) Unwrap() error { return e.err }
