package wiki

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
)

// mediaDir is where uploaded attachments live inside every working tree.
const mediaDir = "media"

// MaxMediaSize caps uploads at 10MB.
const MaxMediaSize = 10 << 20

// allowedMediaExtensions are the file types uploads accept: images,
// documents, video, and audio.
var allowedMediaExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".svg": true,
	".webp": true, ".bmp": true, ".ico": true,
	".pdf": true, ".txt": true, ".md": true,
	".mp4": true, ".webm": true, ".mov": true, ".avi": true,
	".mp3": true, ".wav": true, ".ogg": true, ".m4a": true,
}

// MediaFile describes one uploaded attachment.
type MediaFile struct {
	Filename    string `json:"filename"`
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
}

// UploadMedia stores an attachment under media/ and commits it. The filename
// is reduced to its base name so an upload can never place a file outside
// the media directory. Fails with ErrAlreadyExists rather than overwriting.
func (s *ContentService) UploadMedia(ctx context.Context, repoID, filename string, data []byte, userEmail string) (*MediaFile, error) {
	name, err := mediaFilename(filename)
	if err != nil {
		return nil, err
	}
	if len(data) > MaxMediaSize {
		return nil, fmt.Errorf("%w: file exceeds %dMB limit", ErrValidation, MaxMediaSize>>20)
	}
	_, store, err := s.writableStore(ctx, repoID)
	if err != nil {
		return nil, err
	}

	lock := s.locks.get(repoID)
	lock.Lock()
	defer lock.Unlock()

	p := mediaDir + "/" + name
	if store.Exists(p) {
		return nil, fmt.Errorf("%w: media file %q", ErrAlreadyExists, name)
	}

	result, err := store.WriteAndCommit(ctx, p, data, CommitMeta{
		Action: "Upload media", Path: p, UserEmail: userEmail, When: s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	s.logCommit(repoID, p, result)

	return mediaFileView(name, int64(len(data))), nil
}

// ListMedia lists the attachments in the media directory.
func (s *ContentService) ListMedia(ctx context.Context, repoID string) ([]MediaFile, error) {
	_, store, err := s.readableStore(ctx, repoID)
	if err != nil {
		return nil, err
	}

	lock := s.locks.get(repoID)
	lock.RLock()
	defer lock.RUnlock()

	infos, err := store.ListFiles(mediaDir)
	if err != nil {
		return nil, err
	}
	files := make([]MediaFile, 0, len(infos))
	for _, info := range infos {
		files = append(files, *mediaFileView(info.Name, info.Size))
	}
	return files, nil
}

// DeleteMedia removes an attachment and commits the deletion.
func (s *ContentService) DeleteMedia(ctx context.Context, repoID, filename, userEmail string) error {
	name, err := mediaFilename(filename)
	if err != nil {
		return err
	}
	_, store, err := s.writableStore(ctx, repoID)
	if err != nil {
		return err
	}

	lock := s.locks.get(repoID)
	lock.Lock()
	defer lock.Unlock()

	p := mediaDir + "/" + name
	if store.IsDir(p) {
		return fmt.Errorf("%w: %q is not a file", ErrValidation, name)
	}
	result, err := store.DeletePath(ctx, p, CommitMeta{
		Action: "Delete media", Path: p, UserEmail: userEmail, When: s.clock.Now(),
	})
	if err != nil {
		return err
	}
	s.logCommit(repoID, p, result)
	return nil
}

// mediaFilename validates an upload name: base name only, allowed extension.
func mediaFilename(filename string) (string, error) {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("%w: filename is required", ErrValidation)
	}
	if strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: hidden files are not allowed", ErrValidation)
	}
	ext := strings.ToLower(path.Ext(name))
	if !allowedMediaExtensions[ext] {
		return "", fmt.Errorf("%w: file type %q not allowed", ErrValidation, ext)
	}
	return name, nil
}

func mediaFileView(name string, size int64) *MediaFile {
	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &MediaFile{
		Filename:    name,
		Path:        mediaDir + "/" + name,
		Size:        size,
		ContentType: contentType,
		URL:         "/" + mediaDir + "/" + name,
	}
}
