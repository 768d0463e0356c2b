package media

import (
	"context"
	"fmt"
	"log/slog"
)

// Uploader is the provider's send side.
type Uploader interface {
	// SendMessage posts text and returns the message id.
	SendMessage(ctx context.Context, text string) (int64, error)

	// SendMedia uploads one file with a caption, as a photo or a video
	// depending on the file's kind.
	SendMedia(ctx context.Context, file File, caption string) (int64, Ref, error)

	// SendMediaGroup uploads all items as one grouped post in a single
	// request. Refs come back in item order.
	SendMediaGroup(ctx context.Context, items []GroupItem) (int64, []Ref, error)
}

// Pipeline turns a Post into exactly one remote post.
type Pipeline struct {
	uploader Uploader
	logger   *slog.Logger
}

// NewPipeline creates a pipeline. A nil uploader, or a nil Pipeline, makes
// every Upload fail with ErrNotConfigured.
func NewPipeline(uploader Uploader, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		uploader: uploader,
		logger:   logger,
	}
}

// Configured reports whether uploads can be attempted.
func (p *Pipeline) Configured() bool {
	return p != nil && p.uploader != nil
}

// Upload sends post as a text message, a single media message or an album,
// depending on the number of files. Any provider failure fails the whole
// post; there is no partial result and no retry.
func (p *Pipeline) Upload(ctx context.Context, post Post) (*UploadResult, error) {
	if !p.Configured() {
		return nil, ErrNotConfigured
	}

	caption := Caption(post.Caption, post.Author)

	switch len(post.Files) {
	case 0:
		postID, err := p.uploader.SendMessage(ctx, caption)
		if err != nil {
			return nil, err
		}

		p.logger.Debug("posted text", "post_id", postID)
		return &UploadResult{PostID: postID}, nil

	case 1:
		postID, ref, err := p.uploader.SendMedia(ctx, post.Files[0], caption)
		if err != nil {
			return nil, err
		}

		p.logger.Debug("posted single media",
			"post_id", postID,
			"kind", ref.Kind,
			"name", post.Files[0].Name,
		)
		return &UploadResult{PostID: postID, Refs: []Ref{ref}}, nil

	default:
		items := make([]GroupItem, len(post.Files))
		for i, f := range post.Files {
			items[i] = GroupItem{File: f}
		}
		// The provider renders one caption per group.
		items[0].Caption = caption

		postID, refs, err := p.uploader.SendMediaGroup(ctx, items)
		if err != nil {
			return nil, err
		}
		if len(refs) != len(items) {
			return nil, &ProviderError{
				Method:      "sendMediaGroup",
				Description: fmt.Sprintf("expected %d files in response, got %d", len(items), len(refs)),
			}
		}

		p.logger.Debug("posted media group",
			"post_id", postID,
			"files", len(refs),
		)
		return &UploadResult{PostID: postID, Refs: refs}, nil
	}
}
