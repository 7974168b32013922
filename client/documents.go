package client

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/sweetpotato0/ragdeck/api"
)

// DocumentsAPI manages ingested documents.
type DocumentsAPI struct {
	c *Client
}

// ProgressFunc receives upload progress as a percentage in [0, 100].
type ProgressFunc func(percent int)

// All returns every document grouped by status.
func (d *DocumentsAPI) All(ctx context.Context) (api.DocsStatusesResponse, error) {
	var out api.DocsStatusesResponse
	err := d.c.doJSON(ctx, http.MethodGet, "/documents", nil, nil, &out, d.c.timeout)
	return out, err
}

// Paginated returns one page of documents.
func (d *DocumentsAPI) Paginated(ctx context.Context, req api.PaginatedDocsRequest) (api.PaginatedDocsResponse, error) {
	var out api.PaginatedDocsResponse
	err := d.c.doJSON(ctx, http.MethodPost, "/documents/paginated", nil, req, &out, d.c.timeout)
	return out, err
}

// Upload sends one file as multipart form field "file". size is the number
// of bytes r will yield and is only used for progress reporting.
func (d *DocumentsAPI) Upload(ctx context.Context, filename string, r io.Reader, size int64, onProgress ProgressFunc) (api.DocActionResponse, error) {
	var out api.DocActionResponse

	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)
	src := r
	if onProgress != nil {
		src = &progressReader{r: r, total: size, fn: onProgress}
	}
	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err == nil {
			_, err = io.Copy(part, src)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	if d.c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.c.timeout)
		defer cancel()
	}
	req, err := d.c.newRequest(ctx, http.MethodPost, "/documents/upload", nil, pr)
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := d.c.send(req)
	if err != nil {
		return out, fmt.Errorf("upload %s: %w", filename, err)
	}
	defer resp.Body.Close()
	err = decodeBody(resp, http.MethodPost, "/documents/upload", &out)
	return out, err
}

// InsertText ingests raw text.
func (d *DocumentsAPI) InsertText(ctx context.Context, text string) (api.DocActionResponse, error) {
	var out api.DocActionResponse
	body := struct {
		Text string `json:"text"`
	}{Text: text}
	err := d.c.doJSON(ctx, http.MethodPost, "/documents/text", nil, body, &out, d.c.timeout)
	return out, err
}

// Scan asks the backend to scan its input directory for new files.
func (d *DocumentsAPI) Scan(ctx context.Context) (api.ScanResponse, error) {
	var out api.ScanResponse
	err := d.c.doJSON(ctx, http.MethodPost, "/documents/scan", nil, nil, &out, d.c.timeout)
	return out, err
}

// Delete removes documents by ID.
func (d *DocumentsAPI) Delete(ctx context.Context, req api.DeleteDocumentsRequest) (api.StatusMessage, error) {
	var out api.StatusMessage
	err := d.c.doJSON(ctx, http.MethodDelete, "/documents/delete_document", nil, req, &out, d.c.timeout)
	return out, err
}

// Clear removes every document.
func (d *DocumentsAPI) Clear(ctx context.Context) (api.DocActionResponse, error) {
	var out api.DocActionResponse
	err := d.c.doJSON(ctx, http.MethodDelete, "/documents", nil, nil, &out, d.c.timeout)
	return out, err
}

// PipelineStatus reports the ingestion pipeline.
func (d *DocumentsAPI) PipelineStatus(ctx context.Context) (api.PipelineStatus, error) {
	var out api.PipelineStatus
	err := d.c.doJSON(ctx, http.MethodGet, "/documents/pipeline_status", nil, nil, &out, d.c.timeout)
	return out, err
}

// CancelPipeline requests cancellation of the running pipeline job.
func (d *DocumentsAPI) CancelPipeline(ctx context.Context) (api.StatusMessage, error) {
	var out api.StatusMessage
	err := d.c.doJSON(ctx, http.MethodPost, "/documents/cancel_pipeline", nil, nil, &out, d.c.timeout)
	return out, err
}

type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	last  int
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	total := p.total
	if total <= 0 {
		total = 1
	}
	pct := int(p.read * 100 / total)
	if pct > 100 {
		pct = 100
	}
	if err == io.EOF {
		pct = 100
	}
	if pct != p.last {
		p.last = pct
		p.fn(pct)
	}
	return n, err
}
