package casclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jedisct1/draft-denis-xet/pkg/httpx"
	"github.com/jedisct1/draft-denis-xet/pkg/xetconfig"
	"github.com/jedisct1/draft-denis-xet/pkg/xeterr"
	"github.com/jedisct1/draft-denis-xet/pkg/xethash"
)

// Client talks to one remote CAS server over the five endpoints of §4.7.
type Client struct {
	cfg  *xetconfig.Config
	http *http.Client
}

// New builds a Client from cfg.
func New(cfg *xetconfig.Config) *Client {
	return &Client{cfg: cfg, http: httpx.NewClient(cfg.RequestTimeout)}
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, xeterr.Wrap(xeterr.RemoteTimeout, "request timed out", ctxErr)
		}
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, xeterr.Wrap(xeterr.RemoteTimeout, "request timed out", err)
		}
		return nil, fmt.Errorf("casclient: %s %s: %w", req.Method, req.URL, err)
	}
	return resp, nil
}

// GetReconstruction resolves fileHash to its reconstruction plan (§6). When
// byteRange is non-nil, it is sent as an inclusive Range header restricting
// the returned terms to that span of the file.
func (c *Client) GetReconstruction(ctx context.Context, fileHash xethash.Hash, byteRange *ByteRange) (*ReconstructionResponse, error) {
	url := fmt.Sprintf("%s/v1/reconstructions/%s", c.cfg.ServerURL, fileHash.String())
	req, err := httpx.NewRequest(ctx, http.MethodGet, url, c.cfg.BearerToken, nil)
	if err != nil {
		return nil, err
	}
	if byteRange != nil {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", byteRange.Start, byteRange.End))
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, xeterr.NewRemoteError(resp.StatusCode, url)
	}

	var out ReconstructionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("casclient: decoding reconstruction response: %w", err)
	}
	return &out, nil
}

// GlobalDedupQuery queries the global dedup endpoint for chunkHash, per
// §4.7/§4.8 step 2. A 404 is not an error: it means the chunk is unknown
// globally, and (nil, false, nil) is returned.
func (c *Client) GlobalDedupQuery(ctx context.Context, chunkHash xethash.Hash) (shardBytes []byte, found bool, err error) {
	url := fmt.Sprintf("%s/v1/chunks/default-merkledb/%s", c.cfg.ServerURL, chunkHash.String())
	req, err := httpx.NewRequest(ctx, http.MethodGet, url, c.cfg.BearerToken, nil)
	if err != nil {
		return nil, false, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode/100 != 2 {
		return nil, false, xeterr.NewRemoteError(resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("casclient: reading dedup query body: %w", err)
	}
	return body, true, nil
}

// InsertXorb uploads serialized xorb bytes under xorbHash, per §4.8 step 4.
// Idempotent: a xorb already present on the server still returns success.
func (c *Client) InsertXorb(ctx context.Context, xorbHash xethash.Hash, serialized []byte) (wasInserted bool, err error) {
	url := fmt.Sprintf("%s/v1/xorbs/default/%s", c.cfg.ServerURL, xorbHash.String())
	req, err := httpx.NewRequest(ctx, http.MethodPost, url, c.cfg.BearerToken, serialized)
	if err != nil {
		return false, err
	}

	resp, err := c.do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return false, xeterr.NewRemoteError(resp.StatusCode, url)
	}

	var out InsertXorbResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("casclient: decoding insert-xorb response: %w", err)
	}
	return out.WasInserted, nil
}

// RegisterShard uploads a shard in upload form (footer_size=0), per §4.8
// step 6.
func (c *Client) RegisterShard(ctx context.Context, serialized []byte) (RegisterShardResult, error) {
	url := fmt.Sprintf("%s/v1/shards", c.cfg.ServerURL)
	req, err := httpx.NewRequest(ctx, http.MethodPost, url, c.cfg.BearerToken, serialized)
	if err != nil {
		return 0, err
	}

	resp, err := c.do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return 0, xeterr.NewRemoteError(resp.StatusCode, url)
	}

	var out RegisterShardResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("casclient: decoding register-shard response: %w", err)
	}
	return out.Result, nil
}

// FetchRange downloads an inclusive byte range from a presigned URL, per
// §4.7/§4.9. No Authorization header is sent — presigned URLs carry their
// own embedded credentials.
func (c *Client) FetchRange(ctx context.Context, presignedURL string, r ByteRange) ([]byte, error) {
	req, err := httpx.NewRequest(ctx, http.MethodGet, presignedURL, "", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", r.Start, r.End))

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, xeterr.NewRemoteError(resp.StatusCode, presignedURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("casclient: reading range-fetch body: %w", err)
	}
	return body, nil
}
