package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sorianoB28/luckycaps-sub000/internal/domain"
)

// Store uploads files to Cloudinary using signed uploads. It backs the
// durable copies of product images and shipping labels.
type Store struct {
	cloudName  string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

func NewStore(cloudName, apiKey, apiSecret string) *Store {
	return &Store{
		cloudName:  cloudName,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type uploadResp struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// sign builds the Cloudinary request signature: SHA1 over the sorted
// non-file params joined with '&', concatenated with the API secret.
func (s *Store) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	h := sha1.Sum([]byte(strings.Join(parts, "&") + s.apiSecret))
	return hex.EncodeToString(h[:])
}

func (s *Store) upload(ctx context.Context, file, folder, publicID string) (*domain.Asset, error) {
	if s.cloudName == "" || s.apiKey == "" || s.apiSecret == "" {
		return nil, errors.New("cloudinary credentials missing")
	}
	params := map[string]string{
		"timestamp": strconv.FormatInt(time.Now().Unix(), 10),
	}
	if folder != "" {
		params["folder"] = folder
	}
	if publicID != "" {
		params["public_id"] = publicID
	}
	signature := s.sign(params)

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("api_key", s.apiKey)
	form.Set("signature", signature)
	form.Set("file", file)

	endpoint := "https://api.cloudinary.com/v1_1/" + s.cloudName + "/image/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudinary request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("cloudinary status %d: %s", res.StatusCode, string(b))
	}
	var out uploadResp
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.SecureURL == "" {
		if out.Error.Message != "" {
			return nil, fmt.Errorf("cloudinary: %s", out.Error.Message)
		}
		return nil, errors.New("cloudinary response missing secure_url")
	}
	return &domain.Asset{URL: out.SecureURL, PublicID: out.PublicID, Provider: "cloudinary"}, nil
}

// UploadURL ingests a remote file by URL. Cloudinary fetches it server
// side, so label PDFs never pass through this process.
func (s *Store) UploadURL(ctx context.Context, remoteURL, folder string) (*domain.Asset, error) {
	if remoteURL == "" {
		return nil, errors.New("remote url required")
	}
	return s.upload(ctx, remoteURL, folder, "")
}

func (s *Store) UploadBytes(ctx context.Context, data []byte, folder, name string) (*domain.Asset, error) {
	if len(data) == 0 {
		return nil, errors.New("empty upload")
	}
	encoded := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(data)
	return s.upload(ctx, encoded, folder, name)
}
