package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	gcs "cloud.google.com/go/storage"
	vision "cloud.google.com/go/vision/apiv1"
	"github.com/google/generative-ai-go/genai"
	"github.com/ridge/must/v2"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/visionex-project/adcomposite/composer/impl"
	"github.com/visionex-project/adcomposite/composer/impl/fetch"
	"github.com/visionex-project/adcomposite/composer/impl/font"
	yaGenai "github.com/visionex-project/adcomposite/composer/impl/genai"
	"github.com/visionex-project/adcomposite/composer/impl/kinsoku"
	"github.com/visionex-project/adcomposite/composer/impl/layout"
	"github.com/visionex-project/adcomposite/composer/impl/model"
	"github.com/visionex-project/adcomposite/composer/impl/oracle"
	"github.com/visionex-project/adcomposite/composer/impl/render"
	"github.com/visionex-project/adcomposite/composer/impl/storage"
	"github.com/visionex-project/adcomposite/pkg/brand"
	"github.com/visionex-project/adcomposite/pkg/env"
	yaOpenai "github.com/visionex-project/adcomposite/pkg/openai"
)

const (
	// Default chat model of the openai oracle.
	OPENAI_MODEL = "gpt-4o"
	// How long fetched base images stay cached.
	FETCH_CACHE_TTL = 10 * time.Minute
)

func main() {
	env.Load()

	if len(os.Args) != 2 {
		log.Fatalf("usage: %s <job.yaml>", os.Args[0])
	}
	job := must.OK1(brand.Load(os.Args[1]))
	logo := must.OK1(job.LogoBytes())

	ctx := context.Background()

	// Font files live in <FONT_DIR>/<Family>/<Family>-{Regular,SemiBold,Bold}.ttf. The first family
	// is the default; without any, the embedded Go fonts are used.
	fontProvider := must.OK1(font.New(
		env.StringVariable("FONT_DIR", "composer/cmd/fonts"),
		env.ListVariable("FONT_FAMILIES", nil)...,
	))
	segmenter := must.OK1(kinsoku.NewKagomeSegmenter())

	layoutOracle, closeOracle := newOracle(ctx)
	defer closeOracle()

	// One oracle request per interval across all images, bursting to one.
	limiter := rate.NewLimiter(rate.Every(env.DurationVariable("ORACLE_RATE_INTERVAL", time.Second)), 1)
	layoutEngine := layout.New(layoutOracle, env.DurationVariable("ORACLE_TIMEOUT", 20*time.Second), layout.WithLimiter(limiter))

	compositor := impl.New(
		layoutEngine,
		kinsoku.New(segmenter),
		render.New(fontProvider),
		fetch.New(env.DurationVariable("FETCH_TIMEOUT", 30*time.Second), FETCH_CACHE_TTL),
		env.IntVariable("COMPOSITE_CONCURRENCY", 4),
	)

	baseImages := make([]impl.BaseImage, 0, len(job.Images))
	for _, image := range job.Images {
		baseImages = append(baseImages, impl.BaseImage{
			ID:     image.ID,
			URL:    image.Source,
			Width:  image.Width,
			Height: image.Height,
		})
	}

	start := time.Now()
	results, err := compositor.CompositeImages(ctx, baseImages,
		impl.Copy{
			Headline: job.Copy.Headline,
			BodyText: job.Copy.BodyText,
			CTAText:  job.Copy.CTAText,
		},
		impl.Brand{
			FontFamily: job.Brand.FontFamily,
			Colors:     model.BrandColors(job.Brand.Colors),
			Logo:       logo,
		},
	)
	if err != nil {
		log.Fatalf("Failed to composite images: %v", err)
	}

	sink := newSink(ctx, job.Prefix)
	saved := 0
	for _, result := range results {
		if err := sink.Save(ctx, result); err != nil {
			log.Printf("Failed to save composites of %s: %v", result.BaseImageID, err)
			continue
		}
		saved += len(result.Composites)
	}
	log.Printf("Saved %d composites for %d of %d images in %v", saved, len(results), len(baseImages), time.Since(start))
}

// newOracle picks the layout oracle backend from LAYOUT_ORACLE. The returned func releases it.
func newOracle(ctx context.Context) (layout.Oracle, func()) {
	switch backend := env.StringVariable("LAYOUT_ORACLE", "openai"); backend {
	case "openai", "gemini":
		defaultModel := OPENAI_MODEL
		if backend == "gemini" {
			defaultModel = string(yaGenai.GenaiModelFlash)
		}
		// The model name decides the provider. E.g., "gemini-1.5-pro" goes to Gemini.
		modelName := env.StringVariable("ORACLE_MODEL", defaultModel)
		if !yaGenai.IsGenaiModel(modelName) {
			openaiKey := apiKey(ctx, "OPENAI_API_KEY", "OPENAI_KEY_SECRET_NAME")
			openaiClient := yaOpenai.NewAdapter(openai.NewClient(openaiKey))
			return oracle.NewChatOracle(openaiClient, modelName), func() {}
		}
		must.OK(yaGenai.ValidateModel(modelName))
		geminiKey := apiKey(ctx, "GEMINI_API_KEY", "GEMINI_API_KEY_SECRET_NAME")
		genaiClient := must.OK1(genai.NewClient(ctx, option.WithAPIKey(geminiKey)))
		return oracle.NewChatOracle(yaGenai.New(genaiClient), modelName), func() { genaiClient.Close() }

	case "vision":
		visionClient := must.OK1(vision.NewImageAnnotatorClient(ctx))
		return oracle.NewSubjectOracle(visionClient), func() { visionClient.Close() }

	case "none":
		log.Printf("No layout oracle configured, using fallback layouts only")
		return nil, func() {}

	default:
		log.Fatalf("unknown LAYOUT_ORACLE %q, want openai, gemini, vision or none", backend)
		return nil, nil
	}
}

// newSink writes to GCS_RESULT_BUCKET when set, otherwise under OUTPUT_DIR.
func newSink(ctx context.Context, prefix string) impl.ResultSink {
	// Used to delay the next write when the storage backend fails.
	backoffDuration := time.Second / 2
	if bucket := os.Getenv("GCS_RESULT_BUCKET"); bucket != "" {
		storageClient := storage.New(must.OK1(gcs.NewClient(ctx)))
		return storage.NewSink(storageClient, bucket, prefix, backoffDuration)
	}
	return storage.NewSink(storage.NewLocal(), env.StringVariable("OUTPUT_DIR", "out"), prefix, backoffDuration)
}

// apiKey reads the key from keyVariable for local development, or from GCP Secret Manager.
func apiKey(ctx context.Context, keyVariable string, secretNameVariable string) string {
	if key := os.Getenv(keyVariable); key != "" {
		return key
	}
	secretmanagerClient := must.OK1(secretmanager.NewClient(ctx))
	defer secretmanagerClient.Close()
	return secretFromGCP(secretmanagerClient, ctx, env.RequiredStringVariable(secretNameVariable))
}

func secretFromGCP(secretmanagerClient *secretmanager.Client, ctx context.Context, secretName string) string {
	secretValue := must.OK1(secretmanagerClient.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
			env.RequiredStringVariable("GCP_PROJECT_ID"),
			secretName,
		),
	}))
	return string(secretValue.Payload.Data)
}
