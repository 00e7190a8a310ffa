package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// generateIllustration produces a soft children's-book illustration for an
// exercise and returns it as a data URL. Best-effort: any failure is logged
// and an empty string returned, the exercise works fine without a picture.
func (c *Client) generateIllustration(ctx context.Context, subject string) string {
	data, err := c.createImage(ctx, fmt.Sprintf(
		"Uma ilustração infantil em estilo aquarela suave sobre: %s. Cores alegres, fundo simples, sem texto.",
		subject))
	if err != nil {
		slog.Warn("illustration generation failed", "error", err)
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}

// GenerateColoringPage produces a printable black-and-white coloring page for
// the given theme.
func (c *Client) GenerateColoringPage(ctx context.Context, theme string) ([]byte, error) {
	return c.createImage(ctx, fmt.Sprintf(
		"A black and white coloring book page for children about: %s. "+
			"Simple bold outlines, no shading, no color, white background.",
		theme))
}

func (c *Client) createImage(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := c.api.CreateImage(ctx, openai.ImageRequest{
		Model:          c.imageModel,
		Prompt:         prompt,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("image API call: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("image API returned no data")
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return data, nil
}

// TransformPhotoToColoringPage turns an uploaded photo into a line-art
// coloring page. The photo must be PNG-encoded.
func (c *Client) TransformPhotoToColoringPage(ctx context.Context, photo []byte) ([]byte, error) {
	// The edit endpoint wants a named file, so stage the upload on disk.
	f, err := os.CreateTemp("", "educasense-photo-*.png")
	if err != nil {
		return nil, fmt.Errorf("stage photo: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	if _, err := f.Write(photo); err != nil {
		return nil, fmt.Errorf("stage photo: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("stage photo: %w", err)
	}

	resp, err := c.api.CreateEditImage(ctx, openai.ImageEditRequest{
		Image: f,
		Prompt: "Transform this photo into a black and white coloring book page " +
			"for children. Keep the main subject recognizable, use simple bold " +
			"outlines, no shading, no color.",
		Model:          c.imageModel,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("image edit API call: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("image edit API returned no data")
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return data, nil
}
