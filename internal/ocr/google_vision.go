package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"
)

const defaultVisionAPIURL = "https://vision.googleapis.com/v1/images:annotate"

// GoogleVisionClient recognizes text via the Google Vision
// DOCUMENT_TEXT_DETECTION feature. It reads word-level boxes from the
// fullTextAnnotation so that each fragment carries its own position and
// confidence; TEXT_DETECTION leaves word confidence unset, which would put
// every fragment below the confidence floor. Chat text is mixed-script (CJK
// plus latin), which the feature handles without language hints.
type GoogleVisionClient struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

func NewGoogleVisionClient(apiKey string) *GoogleVisionClient {
	return &GoogleVisionClient{
		apiKey: apiKey,
		apiURL: defaultVisionAPIURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type visionRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image    imageContent  `json:"image"`
	Features []featureType `json:"features"`
}

type imageContent struct {
	Content string `json:"content"`
}

type featureType struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults,omitempty"`
}

type visionResponse struct {
	Responses []annotateResponse `json:"responses"`
	Error     *googleError       `json:"error"`
}

type googleError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type annotateResponse struct {
	FullTextAnnotation *fullTextAnnotation `json:"fullTextAnnotation"`
	Error              *googleError        `json:"error"`
}

type fullTextAnnotation struct {
	Pages []textPage `json:"pages"`
}

type textPage struct {
	Blocks []textBlock `json:"blocks"`
}

type textBlock struct {
	Paragraphs []textParagraph `json:"paragraphs"`
}

type textParagraph struct {
	Words []textWord `json:"words"`
}

type textWord struct {
	Symbols     []textSymbol `json:"symbols"`
	Confidence  float64      `json:"confidence"`
	BoundingBox boundingPoly `json:"boundingBox"`
}

type textSymbol struct {
	Text string `json:"text"`
}

type boundingPoly struct {
	Vertices []vertex `json:"vertices"`
}

type vertex struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c *GoogleVisionClient) Recognize(ctx context.Context, imageData []byte) ([]Fragment, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image dimensions: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("image has zero dimensions")
	}

	reqBody := visionRequest{
		Requests: []imageRequest{
			{
				Image: imageContent{
					Content: base64.StdEncoding.EncodeToString(imageData),
				},
				Features: []featureType{
					{Type: "DOCUMENT_TEXT_DETECTION"},
				},
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s?key=%s", c.apiURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var visionResp visionResponse
	if err := json.Unmarshal(body, &visionResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if visionResp.Error != nil {
		return nil, fmt.Errorf("Google Vision API error: %s", visionResp.Error.Message)
	}
	if len(visionResp.Responses) == 0 {
		return nil, fmt.Errorf("no response from Google Vision API")
	}

	response := visionResp.Responses[0]
	if response.Error != nil {
		return nil, fmt.Errorf("Google Vision API error: %s", response.Error.Message)
	}

	// An absent annotation means no text in the frame, not an error.
	if response.FullTextAnnotation == nil {
		return nil, nil
	}

	var fragments []Fragment
	for _, page := range response.FullTextAnnotation.Pages {
		for _, block := range page.Blocks {
			for _, paragraph := range block.Paragraphs {
				for _, word := range paragraph.Words {
					frag, ok := wordToFragment(word, cfg.Width, cfg.Height)
					if ok {
						fragments = append(fragments, frag)
					}
				}
			}
		}
	}

	return Normalize(fragments), nil
}

func wordToFragment(word textWord, width, height int) (Fragment, bool) {
	if len(word.BoundingBox.Vertices) == 0 {
		return Fragment{}, false
	}

	var text bytes.Buffer
	for _, sym := range word.Symbols {
		text.WriteString(sym.Text)
	}
	if text.Len() == 0 {
		return Fragment{}, false
	}

	var sumX, sumY int
	for _, v := range word.BoundingBox.Vertices {
		sumX += v.X
		sumY += v.Y
	}
	n := len(word.BoundingBox.Vertices)

	// Some responses omit word confidence entirely; an unset value means
	// "not scored", not "unreadable", so it must not fall below the floor.
	confidence := word.Confidence
	if confidence == 0 {
		confidence = 1
	}

	return Fragment{
		Text:       text.String(),
		XRatio:     float64(sumX) / float64(n) / float64(width),
		YRatio:     float64(sumY) / float64(n) / float64(height),
		Confidence: confidence,
	}, true
}
