package aistudio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	llmadapter "github.com/checkmarble/marble-multimodal-adapter"
	"github.com/checkmarble/marble-multimodal-adapter/internal"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/simonfrey/jsonl"
	"google.golang.org/api/option"
	"google.golang.org/genai"
)

// BatchPayload is one line of a batch input file.
type BatchPayload struct {
	Key     string               `json:"key"`
	Request genai.InlinedRequest `json:"request"`
}

func (p *AiStudio) SubmitBatch(ctx context.Context, llm internal.Adapter, reqs ...llmadapter.Requester) (*llmadapter.UntypedBatchPromise, error) {
	if len(reqs) == 0 {
		return nil, errors.New("cannot submit an empty batch")
	}
	if p.backend == genai.BackendVertexAI && p.bucket == "" {
		return nil, errors.New("a bucket is required for batches on Vertex AI")
	}

	model := p.Model(llm, reqs[0])
	if model == "" {
		return nil, errors.New("no model was configured")
	}

	payload, err := p.createBatchInput(llm, reqs...)
	if err != nil {
		return nil, err
	}

	src, err := p.uploadFile(ctx, llm, payload)
	if err != nil {
		return nil, err
	}

	cfg := genai.CreateBatchJobConfig{
		DisplayName: "Created on " + time.Now().Format(time.RFC3339),
	}

	if p.backend == genai.BackendVertexAI {
		cfg.Dest = &genai.BatchJobDestination{
			Format: "jsonl",
			GCSURI: fmt.Sprintf("gs://%s/llm/outputs", p.bucket),
		}
	}

	job, err := p.client.Batches.Create(ctx, model, src, &cfg)
	if err != nil {
		return nil, errors.Wrap(err, "could not create batch job")
	}

	llm.Logger().InfoContext(ctx, "submitted batch job",
		"job", job.Name,
		"model", model,
		"requests", len(reqs))

	return &llmadapter.UntypedBatchPromise{
		Provider: p,
		Id:       job.Name,
	}, nil
}

func (p *AiStudio) createBatchInput(llm internal.Adapter, requesters ...llmadapter.Requester) (io.Reader, error) {
	var buf bytes.Buffer

	w := jsonl.NewWriter(&buf)
	seen := make(map[string]struct{}, len(requesters))

	for _, requester := range requesters {
		if err := requester.Err(); err != nil {
			return nil, err
		}

		id := requester.ToRequest().Id

		if id == "" {
			return nil, errors.New("all requests in a batch must have an ID")
		}
		if _, ok := seen[id]; ok {
			return nil, errors.Newf("duplicate request ID '%s' in batch", id)
		}

		seen[id] = struct{}{}

		opts := internal.CastProviderOptions[RequestOptions](requester.ProviderRequestOptions(p))

		contents, cfg, err := p.adaptRequest(llm, requester, opts)
		if err != nil {
			return nil, err
		}

		payload := BatchPayload{
			Key: id,
			Request: genai.InlinedRequest{
				Model:    p.Model(llm, requester),
				Config:   cfg,
				Contents: contents,
			},
		}

		if err := w.Write(payload); err != nil {
			return nil, errors.Wrap(err, "could not encode batch request")
		}
	}

	return &buf, nil
}

func (p *AiStudio) Check(ctx context.Context, pr *llmadapter.UntypedBatchPromise) (llmadapter.BatchStatus, error) {
	job, err := p.client.Batches.Get(ctx, pr.Id, nil)
	if err != nil {
		return llmadapter.BatchError, errors.Wrap(err, "could not retrieve batch job")
	}

	return adaptJobState(job.State), nil
}

func (p *AiStudio) Wait(ctx context.Context, pr *llmadapter.UntypedBatchPromise) <-chan llmadapter.BatchWaitResponse {
	ch := make(chan llmadapter.BatchWaitResponse, 1)

	go func() {
		defer close(ch)

		ticker := time.NewTicker(p.pollInterval)
		defer ticker.Stop()

		for {
			job, err := p.client.Batches.Get(ctx, pr.Id, nil)
			if err != nil {
				if ctx.Err() != nil {
					return
				}

				ch <- llmadapter.BatchWaitResponse{Status: llmadapter.BatchError, Error: errors.Wrap(err, "could not retrieve batch job")}
				return
			}

			if !job.EndTime.IsZero() {
				ch <- adaptJob(job)
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return ch
}

// uploadFile stores the batch input where the backend can read it from and
// returns the matching job source.
func (p *AiStudio) uploadFile(ctx context.Context, llm internal.Adapter, r io.Reader) (*genai.BatchJobSource, error) {
	switch p.backend {
	case genai.BackendGeminiAPI:
		file, err := p.client.Files.Upload(ctx, r, &genai.UploadFileConfig{
			MIMEType: "jsonl",
		})
		if err != nil {
			return nil, errors.Wrap(err, "could not upload batch input")
		}

		return &genai.BatchJobSource{FileName: file.Name}, nil

	case genai.BackendVertexAI:
		var opts []option.ClientOption

		if llm.HttpClient() != nil {
			opts = append(opts, option.WithHTTPClient(llm.HttpClient()))
		}

		client, err := storage.NewClient(ctx, opts...)
		if err != nil {
			return nil, errors.Wrap(err, "could not create storage client")
		}

		defer client.Close()

		filename := fmt.Sprintf("llm/inputs/%d.jsonl", time.Now().UnixNano())
		wr := client.Bucket(p.bucket).Object(filename).NewWriter(ctx)
		wr.ContentType = "application/jsonl"

		if _, err := io.Copy(wr, r); err != nil {
			_ = wr.Close()
			return nil, errors.Wrap(err, "could not upload batch input")
		}
		if err := wr.Close(); err != nil {
			return nil, errors.Wrap(err, "could not upload batch input")
		}

		return &genai.BatchJobSource{
			Format: "jsonl",
			GCSURI: []string{fmt.Sprintf("gs://%s/%s", p.bucket, filename)},
		}, nil

	default:
		return nil, errors.New("invalid backend")
	}
}

func adaptJob(job *genai.BatchJob) llmadapter.BatchWaitResponse {
	resp := llmadapter.BatchWaitResponse{
		Status: adaptJobState(job.State),
	}

	if job.Dest != nil {
		resp.Output = lo.CoalesceOrEmpty(job.Dest.GCSURI, job.Dest.FileName)
	}
	if job.Error != nil && job.Error.Message != "" {
		resp.Error = errors.Newf("batch job failed: %s", job.Error.Message)
	}

	return resp
}

func adaptJobState(state genai.JobState) llmadapter.BatchStatus {
	switch state {
	case genai.JobStatePending, genai.JobStateQueued:
		return llmadapter.BatchPending
	case genai.JobStateRunning:
		return llmadapter.BatchRunning
	case genai.JobStateCancelled, genai.JobStateSucceeded, genai.JobStatePartiallySucceeded:
		return llmadapter.BatchFinished
	case genai.JobStateFailed, genai.JobStateExpired:
		return llmadapter.BatchError
	default:
		return llmadapter.BatchPending
	}
}
