package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"time"
)

var classifyClient = &http.Client{Timeout: 15 * time.Second}

// ClassificationResult is the classifier service's suggestion for an image.
type ClassificationResult struct {
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
}

func classifierURL() string {
	if u := os.Getenv("CLASSIFIER_URL"); u != "" {
		return u
	}
	return "http://127.0.0.1:5000"
}

// ClassifyImage sends image bytes to the external classification service and
// returns its suggested category label. Best-effort: any failure returns nil
// and the caller proceeds without a category hint.
func ClassifyImage(ctx context.Context, filename string, contentType string, data []byte) *ClassificationResult {
	if len(data) == 0 {
		return nil
	}

	if contentType == "" {
		contentType = "image/jpeg"
	}
	if filename == "" {
		filename = "upload-" + time.Now().Format("20060102150405")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil
	}
	if _, err := part.Write(data); err != nil {
		return nil
	}
	if err := writer.Close(); err != nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, classifierURL()+"/classify-image", &body)
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := classifyClient.Do(req)
	if err != nil {
		log.Printf("Image classification failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("Image classification failed: status %d", resp.StatusCode)
		return nil
	}

	var result ClassificationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Printf("Image classification failed: %v", err)
		return nil
	}
	if result.Classification == "" {
		return nil
	}

	return &result
}
