package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

type proofResponse struct {
	ComprobanteURL string `json:"comprobanteURL"`
	URLComprobante string `json:"url_comprobante"`
	Path           string `json:"comprobante_path"`
}

func (p proofResponse) URL() string {
	switch {
	case p.ComprobanteURL != "":
		return p.ComprobanteURL
	case p.URLComprobante != "":
		return p.URLComprobante
	}
	return p.Path
}

// upload posts one file as multipart/form-data under field.
func (c *Client) upload(ctx context.Context, path, token, field, name string, r io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return fmt.Errorf("copy upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}
	return c.do(req, out)
}
