package llmsvc

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/darpanintel/darpan/core"
)

const transcribePrompt = "Transcribe all the text visible in this document image. " +
	"Preserve names, dates, amounts and identifiers exactly as written. " +
	"Return plain text only, without commentary."

var errNoChoices = errors.New("no choices in chat completion response")

type openAIService struct {
	client      *openai.Client
	model       string
	visionModel string
	temperature float32
	logger      core.Logger
}

var _ core.LLMService = (*openAIService)(nil)

// NewOpenAIService returns a core.LLMService backed by the OpenAI chat completions API.
// Without an API key every call fails with core.ErrLLMDisabled, which callers absorb into fallbacks.
func NewOpenAIService(conf *core.Config, logger core.Logger) core.LLMService {
	if conf.OpenAI.APIKey == "" {
		logger.Warn("OpenAI API key not set; AI analyses will return fallback results")
		return disabledService{}
	}

	cfg := openai.DefaultConfig(conf.OpenAI.APIKey)
	if conf.OpenAI.BaseURL != "" {
		cfg.BaseURL = conf.OpenAI.BaseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: conf.OpenAI.Timeout}

	return &openAIService{
		client:      openai.NewClientWithConfig(cfg),
		model:       conf.OpenAI.Model,
		visionModel: conf.OpenAI.VisionModel,
		temperature: conf.OpenAI.Temperature,
		logger:      logger,
	}
}

func (svc *openAIService) Complete(ctx context.Context, req core.ChatRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = svc.model
	}
	temp := req.Temperature
	if temp == 0 {
		temp = svc.temperature
	}

	creq := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: temp,
		MaxTokens:   req.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
	}
	if req.JSON {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := svc.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return "", errors.Wrap(err, "creating chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", errNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

func (svc *openAIService) Transcribe(ctx context.Context, image []byte, mimeType string) (string, error) {
	dataURI := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := svc.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       svc.visionModel,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: transcribePrompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURI,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "transcribing image")
	}
	if len(resp.Choices) == 0 {
		return "", errNoChoices
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

type disabledService struct{}

func (disabledService) Complete(context.Context, core.ChatRequest) (string, error) {
	return "", core.ErrLLMDisabled
}

func (disabledService) Transcribe(context.Context, []byte, string) (string, error) {
	return "", core.ErrLLMDisabled
}
