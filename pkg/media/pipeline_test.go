package media_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/yearbook/pkg/logger"
	"github.com/papercomputeco/yearbook/pkg/media"
)

// fakeUploader records calls and answers with sequential file ids.
type fakeUploader struct {
	texts  []string
	single []string
	groups [][]media.GroupItem
	err    error
}

func (f *fakeUploader) SendMessage(_ context.Context, text string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.texts = append(f.texts, text)
	return 100, nil
}

func (f *fakeUploader) SendMedia(_ context.Context, file media.File, caption string) (int64, media.Ref, error) {
	if f.err != nil {
		return 0, media.Ref{}, f.err
	}
	f.single = append(f.single, caption)
	return 101, media.Ref{Kind: file.Kind(), FileID: "id-" + file.Name}, nil
}

func (f *fakeUploader) SendMediaGroup(_ context.Context, items []media.GroupItem) (int64, []media.Ref, error) {
	if f.err != nil {
		return 0, nil, f.err
	}
	f.groups = append(f.groups, items)
	refs := make([]media.Ref, len(items))
	for i, item := range items {
		refs[i] = media.Ref{Kind: item.File.Kind(), FileID: "id-" + item.File.Name}
	}
	return 102, refs, nil
}

func file(name, contentType string) media.File {
	return media.FileFromBytes(name, contentType, []byte(name))
}

var _ = Describe("Pipeline", func() {
	var (
		ctx      context.Context
		uploader *fakeUploader
		pipeline *media.Pipeline
	)

	BeforeEach(func() {
		ctx = context.Background()
		uploader = &fakeUploader{}
		pipeline = media.NewPipeline(uploader, logger.Nop())
	})

	It("fails with ErrNotConfigured without an uploader", func() {
		p := media.NewPipeline(nil, logger.Nop())
		Expect(p.Configured()).To(BeFalse())

		_, err := p.Upload(ctx, media.Post{Caption: "x"})
		Expect(err).To(MatchError(media.ErrNotConfigured))
	})

	It("posts text only for zero files and returns no refs", func() {
		res, err := pipeline.Upload(ctx, media.Post{Caption: "hello", Author: "Ann"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.PostID).To(Equal(int64(100)))
		Expect(res.Refs).To(BeEmpty())
		Expect(uploader.texts).To(Equal([]string{"hello\n\n— Author: Ann"}))
		Expect(uploader.single).To(BeEmpty())
		Expect(uploader.groups).To(BeEmpty())
	})

	It("uploads one file with the caption", func() {
		res, err := pipeline.Upload(ctx, media.Post{Caption: "clip", Files: []media.File{file("a.mp4", "video/mp4")}})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.PostID).To(Equal(int64(101)))
		Expect(res.Refs).To(Equal([]media.Ref{{Kind: media.KindVideo, FileID: "id-a.mp4"}}))
		Expect(uploader.single).To(Equal([]string{"clip"}))
	})

	It("uploads two or more files as one album, captioning only the first", func() {
		files := []media.File{
			file("a.jpg", "image/jpeg"),
			file("b.mp4", "video/mp4"),
			file("c.jpg", "image/jpeg"),
		}

		res, err := pipeline.Upload(ctx, media.Post{Caption: "trip", Author: "Bo", Files: files})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.PostID).To(Equal(int64(102)))
		Expect(res.FileIDs()).To(Equal([]string{"id-a.jpg", "id-b.mp4", "id-c.jpg"}))

		Expect(uploader.groups).To(HaveLen(1))
		items := uploader.groups[0]
		Expect(items[0].Caption).To(Equal("trip\n\n— Author: Bo"))
		Expect(items[1].Caption).To(BeEmpty())
		Expect(items[2].Caption).To(BeEmpty())
	})

	It("returns a single failure and no refs when the provider refuses", func() {
		uploader.err = &media.ProviderError{Method: "sendMediaGroup", Code: 413, Description: "Request Entity Too Large"}

		res, err := pipeline.Upload(ctx, media.Post{Files: []media.File{file("a.jpg", "image/jpeg"), file("b.jpg", "image/jpeg")}})
		Expect(res).To(BeNil())
		Expect(media.IsProviderError(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("Request Entity Too Large"))
	})

	It("passes transport failures through", func() {
		uploader.err = fmt.Errorf("%w: connection refused", media.ErrTransport)

		_, err := pipeline.Upload(ctx, media.Post{Caption: "x"})
		Expect(err).To(MatchError(media.ErrTransport))
	})
})
