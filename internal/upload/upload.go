package upload

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFMime is the only content type the upload flow accepts
const PDFMime = "application/pdf"

// MaxSize is the advisory upload limit. Larger files are flagged, not refused.
const MaxSize = 10 << 20

var (
	ErrNotPDF = errors.New("Please select a PDF file")
	ErrNoFile = errors.New("Please select a file to upload")
)

// File describes a local file picked for upload
type File struct {
	Path     string
	Name     string
	Size     int64
	MIME     string
	Pages    int
	Oversize bool
}

// Inspect stats path and determines its content type. Anything but a PDF is
// rejected with ErrNotPDF before any network traffic. The page count is best
// effort and 0 when the document cannot be parsed.
func Inspect(path string) (*File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrNoFile
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}

	file := &File{
		Path:     path,
		Name:     filepath.Base(path),
		Size:     info.Size(),
		MIME:     DetectMIME(path, head[:n]),
		Oversize: info.Size() > MaxSize,
	}
	if file.MIME != PDFMime {
		return file, fmt.Errorf("%w (got %s)", ErrNotPDF, file.MIME)
	}

	file.Pages = countPages(path)
	return file, nil
}

// DetectMIME combines the extension and the leading bytes. A PDF extension
// on content that sniffs as something definite (text, image) is not a PDF.
func DetectMIME(name string, head []byte) string {
	sniffed := http.DetectContentType(head)
	if i := strings.Index(sniffed, ";"); i >= 0 {
		sniffed = sniffed[:i]
	}

	byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if i := strings.Index(byExt, ";"); i >= 0 {
		byExt = byExt[:i]
	}

	switch {
	case sniffed == PDFMime:
		return PDFMime
	case byExt == PDFMime && sniffed == "application/octet-stream" && len(head) > 0:
		return PDFMime
	case byExt == PDFMime:
		return sniffed
	case byExt != "":
		return byExt
	default:
		return sniffed
	}
}

func countPages(path string) (pages int) {
	defer func() {
		if recover() != nil {
			pages = 0
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	return r.NumPage()
}

// HumanSize formats a byte count the way the upload screen shows it
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
