// Package router decides how a consultation is answered: which input
// supplies the patient's question, which model answers it, and where the
// spoken reply is written.
package router

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"

	"arogya/internal/transcribe"
)

const (
	NoInputMessage = "Please provide either text input, audio input, or an image for analysis."
	ErrorQuery     = "Error"
	errorPrefix    = "An error occurred: "
)

// Source tells where the effective query came from.
type Source string

const (
	SourceText  Source = "text"
	SourceAudio Source = "audio"
	SourceNone  Source = "none"
)

// Channel tells which path produced the response.
type Channel string

const (
	ChannelVision   Channel = "vision"
	ChannelText     Channel = "text"
	ChannelFallback Channel = "fallback"
)

type Transcriber interface {
	Transcribe(ctx context.Context, path, language string) transcribe.Result
}

type VisionModel interface {
	AnalyzeImage(ctx context.Context, prompt, model, imagePath string) (string, error)
}

type TextModel interface {
	Complete(ctx context.Context, systemPrompt, query, model string) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, outPath string) (string, error)
}

// Input holds the three optional inputs; an empty string means absent.
type Input struct {
	Text      string
	AudioPath string
	ImagePath string
}

type Response struct {
	Query     string
	Text      string
	AudioPath string // empty when no audio was produced

	Source        Source
	Channel       Channel
	Transcription *transcribe.Result // set when audio was transcribed
	Err           error              // set when the request failed
}

func (r Response) HasAudio() bool { return r.AudioPath != "" }

func (r Response) Failed() bool { return r.Err != nil }

type Options struct {
	Persona     string
	VisionModel string
	TextModel   string
	Language    string
	OutputPath  string
}

type Router struct {
	stt    Transcriber
	vision VisionModel
	text   TextModel
	tts    Synthesizer
	opt    Options
}

func New(stt Transcriber, vision VisionModel, text TextModel, tts Synthesizer, opt Options) *Router {
	if opt.Persona == "" {
		opt.Persona = Persona
	}
	if opt.Language == "" {
		opt.Language = "en"
	}
	return &Router{stt: stt, vision: vision, text: text, tts: tts, opt: opt}
}

// Process answers one consultation. It never returns without a query and a
// response text: any failure while answering is logged and reported as
// ("Error", "An error occurred: ...", no audio).
func (r *Router) Process(ctx context.Context, in Input) (resp Response) {
	defer func() {
		if p := recover(); p != nil {
			resp = failure(fmt.Errorf("%v", p))
		}
	}()

	resp = r.resolveQuery(ctx, in)

	answer, channel, err := r.respond(ctx, resp.Query, in.ImagePath)
	if err != nil {
		return failure(err)
	}
	resp.Text = answer
	resp.Channel = channel

	audio, err := r.tts.Synthesize(ctx, answer, r.opt.OutputPath)
	if err != nil {
		log.Error("Failed to generate audio response", "err", err)
		return resp
	}
	resp.AudioPath = audio

	return resp
}

func (r *Router) resolveQuery(ctx context.Context, in Input) Response {
	if text := strings.TrimSpace(in.Text); text != "" {
		log.Info("Processing text input")
		return Response{Query: text, Source: SourceText}
	}

	if in.AudioPath == "" {
		return Response{Source: SourceNone}
	}

	log.Info("Processing audio input")
	res := r.stt.Transcribe(ctx, in.AudioPath, r.opt.Language)
	if !res.OK() {
		log.Warn("Audio transcription failed", "status", res.Status, "err", res.Err)
		return Response{Source: SourceAudio, Transcription: &res}
	}

	log.Info("Audio transcription successful")
	return Response{Query: res.Text, Source: SourceAudio, Transcription: &res}
}

func (r *Router) respond(ctx context.Context, query, imagePath string) (string, Channel, error) {
	switch {
	case imagePath != "":
		log.Info("Processing image input")
		answer, err := r.vision.AnalyzeImage(ctx, visionPrompt(r.opt.Persona, query), r.opt.VisionModel, imagePath)
		return answer, ChannelVision, err

	case query != "":
		log.Info("Generating text-only response")
		answer, err := r.text.Complete(ctx, r.opt.Persona, query, r.opt.TextModel)
		return answer, ChannelText, err

	default:
		log.Warn("No valid input provided")
		return NoInputMessage, ChannelFallback, nil
	}
}

func failure(err error) Response {
	log.Error("Consultation failed", "err", err)
	return Response{
		Query: ErrorQuery,
		Text:  errorPrefix + err.Error(),
		Err:   err,
	}
}
