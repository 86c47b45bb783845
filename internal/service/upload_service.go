package service

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

var extensionPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// 可以内联展示的位图格式，svg 可携带脚本，不在其中
var inlineExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// Attachment describes a stored upload.
type Attachment struct {
	Path   string
	Name   string
	Width  int
	Height int
}

// UploadService 负责把附件写入本地上传目录，并通过 URL 前缀对外提供。
type UploadService struct {
	dir      string
	urlPath  string
	maxBytes int64
}

// NewUploadService creates an UploadService. maxBytes <= 0 disables the size limit.
func NewUploadService(dir, urlPath string, maxBytes int64) *UploadService {
	urlPath = "/" + strings.Trim(strings.TrimSpace(urlPath), "/")
	return &UploadService{dir: dir, urlPath: urlPath, maxBytes: maxBytes}
}

// Dir returns the directory uploads are written to.
func (s *UploadService) Dir() string {
	return s.dir
}

// URLPath returns the URL prefix uploads are served from.
func (s *UploadService) URLPath() string {
	return s.urlPath
}

// Save writes the uploaded file under a unique name and probes image dimensions.
func (s *UploadService) Save(file *multipart.FileHeader) (*Attachment, error) {
	if file == nil {
		return nil, validationError("file is required")
	}
	if s.maxBytes > 0 && file.Size > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	newFilename := fmt.Sprintf("%s-%s%s", time.Now().Format("20060102"), uuid.NewString(), safeExtension(file.Filename))
	target := filepath.Join(s.dir, newFilename)

	written, err := writeLimited(target, src, s.maxBytes)
	if err != nil {
		os.Remove(target)
		return nil, err
	}
	if written == 0 {
		os.Remove(target)
		return nil, validationError("file is empty")
	}

	attachment := &Attachment{
		Path: path.Join(s.urlPath, newFilename),
		Name: originalName(file.Filename),
	}
	attachment.Width, attachment.Height = probeImage(target)
	return attachment, nil
}

// Remove deletes a file previously returned by Save. Paths outside the upload
// directory are ignored.
func (s *UploadService) Remove(urlPath string) error {
	prefix := s.urlPath + "/"
	if !strings.HasPrefix(urlPath, prefix) {
		return nil
	}
	target, ok := s.LocalPath(strings.TrimPrefix(urlPath, prefix))
	if !ok {
		return nil
	}

	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

// LocalPath maps a stored file name to its location on disk. Names that are
// not a single path element are rejected.
func (s *UploadService) LocalPath(name string) (string, bool) {
	if name == "" || name != path.Base(name) || name == "." || name == ".." || strings.Contains(name, `\`) {
		return "", false
	}
	return filepath.Join(s.dir, name), true
}

// Inline reports whether a stored file may be displayed by the browser
// instead of downloaded.
func (s *UploadService) Inline(name string) bool {
	return inlineExtensions[strings.ToLower(path.Ext(name))]
}

func writeLimited(target string, src io.Reader, maxBytes int64) (int64, error) {
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	reader := src
	if maxBytes > 0 {
		reader = io.LimitReader(src, maxBytes+1)
	}

	written, err := io.Copy(dst, reader)
	if err != nil {
		return written, fmt.Errorf("write upload file: %w", err)
	}
	// Size 头可以伪造，以实际写入的字节数为准
	if maxBytes > 0 && written > maxBytes {
		return written, ErrFileTooLarge
	}
	return written, nil
}

func probeImage(target string) (int, int) {
	f, err := os.Open(target)
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func safeExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(originalName(filename)))
	if !extensionPattern.MatchString(ext) {
		return ""
	}
	return ext
}

func originalName(filename string) string {
	name := strings.TrimSpace(filename)
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}
