package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/paramexchange/core/internal/errs"
)

// KeyAuthorityClient talks to the key authority's two HTTP endpoints: the
// public hash key, and (authenticated, out of scope here beyond the call
// shape) key-release bookkeeping.
type KeyAuthorityClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewKeyAuthorityClient(baseURL string) *KeyAuthorityClient {
	return &KeyAuthorityClient{BaseURL: baseURL, HTTP: &http.Client{Timeout: 30 * time.Second}}
}

// HashKeyResponse is the /hash_key payload.
type HashKeyResponse struct {
	HashKey []byte `json:"hash_key"`
}

func (c *KeyAuthorityClient) HashKey(ctx context.Context) ([]byte, error) {
	var out HashKeyResponse
	if err := c.getJSON(ctx, "/hash_key", &out); err != nil {
		return nil, err
	}
	return out.HashKey, nil
}

// KeyRetrievalResponse is the /key_retrieval payload: where to dial to run
// an OT session as receiver, and whether that socket is TLS-wrapped.
type KeyRetrievalResponse struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	TotalOTs int    `json:"totalOTs"`
	TLS      bool   `json:"tls"`
}

func (c *KeyAuthorityClient) KeyRetrieval(ctx context.Context, totalOTs int) (KeyRetrievalResponse, error) {
	var out KeyRetrievalResponse
	err := c.getJSON(ctx, fmt.Sprintf("/key_retrieval?totalOTs=%d", totalOTs), &out)
	return out, err
}

// BrokerClient talks to the broker's five HTTP endpoints: storing a
// provider's record, batch storage, batch retrieval of ciphertexts by hash,
// the exported Bloom filter, and the PSI connection info.
type BrokerClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewBrokerClient(baseURL string) *BrokerClient {
	return &BrokerClient{BaseURL: baseURL, HTTP: &http.Client{Timeout: 60 * time.Second}}
}

type StoreRecordRequest struct {
	Envelope map[string]string `json:"envelope"`
}

func (c *BrokerClient) StoreRecord(ctx context.Context, req StoreRecordRequest) error {
	return c.postJSON(ctx, "/records", req, nil)
}

func (c *BrokerClient) BatchStoreRecords(ctx context.Context, reqs []StoreRecordRequest) error {
	return c.postJSON(ctx, "/records/batch", reqs, nil)
}

type RetrieveRequest struct {
	Hashes []string `json:"hashes"`
}

type RetrieveResponse struct {
	Envelopes []map[string]string `json:"envelopes"`
}

func (c *BrokerClient) BatchRetrieveRecords(ctx context.Context, hashes []string) ([]map[string]string, error) {
	var out RetrieveResponse
	if err := c.postJSON(ctx, "/records/retrieve", RetrieveRequest{Hashes: hashes}, &out); err != nil {
		return nil, err
	}
	return out.Envelopes, nil
}

type BloomResponse struct {
	Filter string `json:"filter"`
}

func (c *BrokerClient) Bloom(ctx context.Context) (string, error) {
	var out BloomResponse
	if err := c.getJSON(ctx, "/bloom", &out); err != nil {
		return "", err
	}
	return out.Filter, nil
}

// PSIResponse is the /psi payload: where to dial to run a PSI session as
// receiver, whether that socket is TLS-wrapped, and the server's configured
// PSI_SETSIZE (the querier must reject locally if its own input exceeds it).
type PSIResponse struct {
	Host    string `json:"host"`
	Port    int    `json:"port"`
	TLS     bool   `json:"tls"`
	SetSize int    `json:"setSize"`
}

func (c *BrokerClient) PSI(ctx context.Context) (PSIResponse, error) {
	var out PSIResponse
	err := c.getJSON(ctx, "/psi", &out)
	return out, err
}

func (c *KeyAuthorityClient) getJSON(ctx context.Context, path string, out any) error {
	return doJSON(ctx, c.HTTP, http.MethodGet, c.BaseURL+path, nil, out)
}

func (c *BrokerClient) getJSON(ctx context.Context, path string, out any) error {
	return doJSON(ctx, c.HTTP, http.MethodGet, c.BaseURL+path, nil, out)
}

// postJSON gzip-compresses the encoded body before sending; batch record
// requests (records/batch, records/retrieve) can carry thousands of
// envelopes, and compression is cheap insurance against the broker's HTTP
// timeout on a slow link.
func (c *BrokerClient) postJSON(ctx context.Context, path string, body, out any) error {
	var plain bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&plain).Encode(body); err != nil {
			return errs.ConfigError("transport.postJSON: encode", err)
		}
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(plain.Bytes()); err != nil {
		return errs.ConfigError("transport.postJSON: gzip", err)
	}
	if err := gz.Close(); err != nil {
		return errs.ConfigError("transport.postJSON: gzip", err)
	}
	return doJSON(ctx, c.HTTP, http.MethodPost, c.BaseURL+path, &buf, out)
}

func doJSON(ctx context.Context, client *http.Client, method, url string, body *bytes.Buffer, out any) error {
	var reqBody *bytes.Buffer
	if body == nil {
		reqBody = &bytes.Buffer{}
	} else {
		reqBody = body
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return errs.ConfigError("transport.doJSON: new request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if reqBody.Len() > 0 {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := client.Do(req)
	if err != nil {
		return errs.NetworkError("transport.doJSON: do", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return errs.AuthError("transport.doJSON", fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return errs.NetworkError("transport.doJSON", fmt.Errorf("status %d", resp.StatusCode))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.ProtocolError("transport.doJSON: decode", err)
	}
	return nil
}

// DecodeJSONBody decodes an HTTP request body into v, transparently
// un-gzipping it first when the client set Content-Encoding: gzip (every
// request postJSON sends does). Used by the broker's handlers in place of a
// bare json.NewDecoder so they stay compatible with both compressed and
// plain request bodies.
func DecodeJSONBody(r *http.Request, v any) error {
	var reader io.Reader = r.Body
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			return errs.ProtocolError("transport.DecodeJSONBody: gzip", err)
		}
		defer gz.Close()
		reader = gz
	}
	if err := json.NewDecoder(reader).Decode(v); err != nil {
		return errs.ProtocolError("transport.DecodeJSONBody: decode", err)
	}
	return nil
}
