package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// CopyFile streams src into dst, creating or truncating dst.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// CopyFileVerified copies src to dst and then re-reads dst, confirming that
// the size and SHA-256 digest of what landed on disk match the source stream.
// A mismatch removes dst and reports an error. Used when the copy seeds a
// replacement for shared audio: a truncated fork would otherwise become the
// segment's new master.
func CopyFileVerified(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	srcSum := sha256.New()
	written, err := io.Copy(out, io.TeeReader(in, srcSum))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst)
		return err
	}

	stored, dstDigest, err := hashFile(dst)
	if err != nil {
		return err
	}
	if stored != written {
		_ = os.Remove(dst)
		return fmt.Errorf("verify copy %s: wrote %d bytes, read back %d", dst, written, stored)
	}
	if !bytes.Equal(srcSum.Sum(nil), dstDigest) {
		_ = os.Remove(dst)
		return fmt.Errorf("verify copy %s: checksum mismatch after write", dst)
	}
	return nil
}

func hashFile(path string) (int64, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, nil, err
	}
	return n, h.Sum(nil), nil
}
