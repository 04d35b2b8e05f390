/*
Package remote proxies every model.Model call over HTTP to a sibling
inference process, for when a stage's model config names a URL instead of
"local". Requests are sonic-encoded JSON, sent through go-resty with a
retryablehttp-backed transport, and wrapped by a circuit breaker so a
struggling inference worker fails fast instead of piling up retries.
*/
package remote

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/bilirumine/engine/internal/clip"
	"github.com/bilirumine/engine/internal/model"
	"github.com/bilirumine/engine/internal/resilience"
	"github.com/bilirumine/engine/internal/tensor"
)

// Remote implements model.Model by delegating every call to an
// out-of-process HTTP inference worker.
type Remote struct {
	client  *resty.Client
	breaker *resilience.Breaker
}

// New constructs a Remote client targeting baseURL, e.g.
// "http://127.0.0.1:8188".
func New(baseURL string) *Remote {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = nil

	client := resty.NewWithClient(rc.StandardClient())
	client.SetBaseURL(baseURL)
	client.SetTimeout(60 * time.Second)
	client.JSONMarshal = sonic.Marshal
	client.JSONUnmarshal = sonic.Unmarshal

	breaker := resilience.New("model-remote", resilience.Settings{
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &Remote{client: client, breaker: breaker}
}

func (r *Remote) call(ctx context.Context, path string, body, out interface{}) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		resp, err := r.client.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(out).
			Post(path)
		if err != nil {
			return nil, fmt.Errorf("remote model call %s: %w", path, err)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("remote model call %s: status %d", path, resp.StatusCode())
		}
		return nil, nil
	})
	return err
}

type embedRequest struct {
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding clip.Embedding `json:"embedding"`
}

// Embed proxies a CLIP text-embedding call.
func (r *Remote) Embed(ctx context.Context, prompt string) (clip.Embedding, error) {
	var out embedResponse
	if err := r.call(ctx, "/embed", embedRequest{Prompt: prompt}, &out); err != nil {
		return nil, err
	}
	return out.Embedding, nil
}

type payloadWire struct {
	N    int       `json:"n"`
	H    int       `json:"h"`
	W    int       `json:"w"`
	C    int       `json:"c"`
	Data []float32 `json:"data"`
}

func toWire(p tensor.Payload) payloadWire {
	return payloadWire{N: p.N, H: p.H, W: p.W, C: p.C, Data: p.Data}
}

func fromWire(w payloadWire) tensor.Payload {
	return tensor.Payload{N: w.N, H: w.H, W: w.W, C: w.C, Data: w.Data}
}

// Encode proxies a VAE encode call.
func (r *Remote) Encode(ctx context.Context, frame tensor.Payload) (model.Latent, error) {
	var out payloadWire
	if err := r.call(ctx, "/vae/encode", toWire(frame), &out); err != nil {
		return model.Latent{}, err
	}
	return fromWire(out), nil
}

// Decode proxies a VAE decode call.
func (r *Remote) Decode(ctx context.Context, latent model.Latent) (tensor.Payload, error) {
	var out payloadWire
	if err := r.call(ctx, "/vae/decode", toWire(latent), &out); err != nil {
		return tensor.Payload{}, err
	}
	return fromWire(out), nil
}

type sampleRequestWire struct {
	Latent    payloadWire    `json:"latent"`
	Positive  clip.Embedding `json:"positive"`
	Negative  clip.Embedding `json:"negative"`
	Scheduler string         `json:"scheduler"`
	Steps     int            `json:"steps"`
	Guidance  float64        `json:"guidance"`
	Denoise   float64        `json:"denoise"`
	Seed      uint64         `json:"seed"`
}

// Sample proxies a diffusion sampling call.
func (r *Remote) Sample(ctx context.Context, req model.SampleRequest) (model.Latent, error) {
	wire := sampleRequestWire{
		Latent:    toWire(req.Latent),
		Positive:  req.Positive,
		Negative:  req.Negative,
		Scheduler: req.Scheduler,
		Steps:     req.Steps,
		Guidance:  req.Guidance,
		Denoise:   req.Denoise,
		Seed:      req.Seed,
	}
	var out payloadWire
	if err := r.call(ctx, "/sample", wire, &out); err != nil {
		return model.Latent{}, err
	}
	return fromWire(out), nil
}

type interpolateRequestWire struct {
	Frames     payloadWire `json:"frames"`
	Scale      float64     `json:"scale"`
	Multiplier int         `json:"multiplier"`
}

// Interpolate proxies one cascaded interpolation pass.
func (r *Remote) Interpolate(ctx context.Context, frames tensor.Payload, scale float64, multiplier int) (tensor.Payload, error) {
	wire := interpolateRequestWire{Frames: toWire(frames), Scale: scale, Multiplier: multiplier}
	var out payloadWire
	if err := r.call(ctx, "/interpolate", wire, &out); err != nil {
		return tensor.Payload{}, err
	}
	return fromWire(out), nil
}

type generateRequestWire struct {
	Prompts []string `json:"prompts"`
}

// Generate proxies a cold-start audio generation call.
func (r *Remote) Generate(ctx context.Context, prompts []string) (tensor.Payload, error) {
	var out payloadWire
	if err := r.call(ctx, "/audio/generate", generateRequestWire{Prompts: prompts}, &out); err != nil {
		return tensor.Payload{}, err
	}
	return fromWire(out), nil
}

type generateContinuationRequestWire struct {
	PriorTail  payloadWire `json:"prior_tail"`
	SampleRate int         `json:"sample_rate"`
	Prompts    []string    `json:"prompts"`
}

// GenerateContinuation proxies an audio-continuation call.
func (r *Remote) GenerateContinuation(ctx context.Context, priorTail tensor.Payload, sampleRate int, prompts []string) (tensor.Payload, error) {
	wire := generateContinuationRequestWire{PriorTail: toWire(priorTail), SampleRate: sampleRate, Prompts: prompts}
	var out payloadWire
	if err := r.call(ctx, "/audio/continue", wire, &out); err != nil {
		return tensor.Payload{}, err
	}
	return fromWire(out), nil
}
