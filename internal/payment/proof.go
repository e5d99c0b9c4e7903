package payment

import (
	stderrors "errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	errors "github.com/frahmantamala/resto-order/internal"
)

const DefaultProofMaxBytes int64 = 2 * 1024 * 1024

var ProofExtensions = []string{"png", "jpg", "jpeg", "webp", "pdf"}

// ProofFile is an uploaded proof of payment. Size is the declared size in
// bytes; the content is also bounded while it is stored.
type ProofFile struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// Extension returns the lowercased extension without the dot.
func (f *ProofFile) Extension() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Filename), "."))
}

func ValidateProof(f *ProofFile, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultProofMaxBytes
	}
	if f == nil || f.Content == nil {
		return errors.NewValidationFieldError("proof", "proof is required", errors.ErrCodeInvalidProofFile)
	}

	ext := f.Extension()
	allowed := false
	for _, e := range ProofExtensions {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		return errors.NewValidationFieldError("proof",
			fmt.Sprintf("proof must be one of: %s", strings.Join(ProofExtensions, ", ")),
			errors.ErrCodeInvalidProofFile)
	}

	if f.Size > maxBytes {
		return errors.NewValidationFieldError("proof",
			fmt.Sprintf("proof must not exceed %d bytes", maxBytes),
			errors.ErrCodeInvalidProofFile)
	}
	return nil
}

// boundedReader fails once more than max bytes have been read, covering
// uploads whose declared size is wrong.
type boundedReader struct {
	r   io.Reader
	max int64
	n   int64
}

var errProofTooLarge = stderrors.New("proof exceeds size limit")

func (b *boundedReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	b.n += int64(n)
	if b.n > b.max {
		return n, errProofTooLarge
	}
	return n, err
}
