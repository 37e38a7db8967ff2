// Command client uploads an image with a phase selector to a running API
// instance and writes the returned PNG to disk.
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type processResponse struct {
	Phase                string `json:"phase"`
	Format               string `json:"format"`
	Width                int    `json:"width"`
	Height               int    `json:"height"`
	ProcessedImageBase64 string `json:"processed_image_base64"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func main() {
	var (
		baseURL   = flag.String("url", "http://127.0.0.1:7860", "backend base URL")
		imagePath = flag.String("image", "", "path to input image (JPG/PNG)")
		phase     = flag.String("phase", "venous", "processing phase: arterial or venous")
		outPath   = flag.String("out", "processed.png", "output PNG file")
		timeout   = flag.Duration("timeout", 30*time.Second, "request timeout")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[client] ", log.LstdFlags|log.Lmsgprefix)

	if strings.TrimSpace(*imagePath) == "" {
		logger.Fatal("the -image flag is required")
	}

	data, err := os.ReadFile(*imagePath)
	if err != nil {
		logger.Fatalf("read input image: %v", err)
	}

	endpoint := strings.TrimRight(*baseURL, "/") + "/v1/process"
	logger.Printf("uploading %s phase=%s to %s", *imagePath, *phase, endpoint)

	png, resp, err := process(endpoint, filepath.Base(*imagePath), *phase, data, *timeout)
	if err != nil {
		logger.Fatalf("process request failed: %v", err)
	}

	if err := os.WriteFile(*outPath, png, 0o644); err != nil {
		logger.Fatalf("write output file: %v", err)
	}
	logger.Printf("saved processed image to %s width=%d height=%d bytes=%d", *outPath, resp.Width, resp.Height, len(png))
}

func process(endpoint, filename, phase string, data []byte, timeout time.Duration) ([]byte, processResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, processResponse{}, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, processResponse{}, fmt.Errorf("write file part: %w", err)
	}
	if err := writer.WriteField("phase", phase); err != nil {
		return nil, processResponse{}, fmt.Errorf("write phase field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, processResponse{}, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, processResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, processResponse{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, processResponse{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Detail != "" {
			return nil, processResponse{}, fmt.Errorf("server returned status=%d detail=%q", resp.StatusCode, errResp.Detail)
		}
		return nil, processResponse{}, fmt.Errorf("server returned status=%d", resp.StatusCode)
	}

	var result processResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, processResponse{}, fmt.Errorf("decode response: %w", err)
	}

	png, err := base64.StdEncoding.DecodeString(result.ProcessedImageBase64)
	if err != nil {
		return nil, processResponse{}, fmt.Errorf("decode processed image: %w", err)
	}

	return png, result, nil
}
