package core

import (
	"path/filepath"
	"strings"
	"time"
)

// SourceType identifies where the analysed content came from
type SourceType string

const (
	SourceText  SourceType = "text"
	SourceURL   SourceType = "url"
	SourceImage SourceType = "image"
	SourceEmail SourceType = "email"
)

// Label is the final or classifier-level risk label
type Label string

const (
	LabelOK         Label = "ok"
	LabelSuspicious Label = "suspicious"
	LabelFraud      Label = "fraud"
)

// AnalysisInput carries exactly one of the supported input variants
type AnalysisInput struct {
	Kind SourceType
	Text string
	URL  string
	Data []byte
	// Filename is informational only (logging, CLI output)
	Filename string
}

// TextInput builds an input from free text
func TextInput(text string) AnalysisInput {
	return AnalysisInput{Kind: SourceText, Text: text}
}

// URLInput builds an input from a URL
func URLInput(url string) AnalysisInput {
	return AnalysisInput{Kind: SourceURL, URL: url}
}

// ImageInput builds an input from raw image bytes
func ImageInput(data []byte, filename string) AnalysisInput {
	return AnalysisInput{Kind: SourceImage, Data: data, Filename: filename}
}

// EmailInput builds an input from a raw RFC 5322 message
func EmailInput(data []byte, filename string) AnalysisInput {
	return AnalysisInput{Kind: SourceEmail, Data: data, Filename: filename}
}

// Validate checks that exactly the variant named by Kind is populated
func (in AnalysisInput) Validate() error {
	populated := 0
	if strings.TrimSpace(in.Text) != "" {
		populated++
	}
	if strings.TrimSpace(in.URL) != "" {
		populated++
	}
	if len(in.Data) > 0 {
		populated++
	}
	if populated == 0 {
		return ErrEmptyInput
	}
	if populated > 1 {
		return NewInputError("provide only one of text, URL, image or email file", ErrUnsupportedInput)
	}

	switch in.Kind {
	case SourceText:
		if strings.TrimSpace(in.Text) == "" {
			return ErrEmptyInput
		}
	case SourceURL:
		if strings.TrimSpace(in.URL) == "" {
			return ErrEmptyInput
		}
	case SourceImage, SourceEmail:
		if len(in.Data) == 0 {
			return ErrEmptyInput
		}
	default:
		return NewInputError("unsupported input type: "+string(in.Kind), ErrUnsupportedInput)
	}
	return nil
}

// OCRDiagnostics describes how the OCR engine reached its result
type OCRDiagnostics struct {
	Variant        string        `json:"variant,omitempty"`
	PageSegMode    int           `json:"page_seg_mode,omitempty"`
	Confidence     float64       `json:"confidence"`
	Attempts       int           `json:"attempts"`
	Passes         int           `json:"passes"`
	EarlyExit      bool          `json:"early_exit"`
	BudgetExceeded bool          `json:"budget_exceeded"`
	Fallback       bool          `json:"fallback"`
	Elapsed        time.Duration `json:"elapsed"`
	DebugImages    []string      `json:"debug_images,omitempty"`
}

// Metadata holds the structured signals extracted alongside the text.
// Zero values mean "unknown"; URLAccessible is tri-state for that reason.
type Metadata struct {
	SourceType SourceType `json:"source_type"`

	URL           string `json:"url,omitempty"`
	FinalURL      string `json:"final_url,omitempty"`
	StatusCode    int    `json:"status_code,omitempty"`
	URLAccessible *bool  `json:"url_accessible,omitempty"`
	RedirectChain bool   `json:"redirect_chain,omitempty"`
	URLError      string `json:"url_error,omitempty"`
	Title         string `json:"title,omitempty"`

	Subject                 string `json:"subject,omitempty"`
	From                    string `json:"from,omitempty"`
	FromDomain              string `json:"from_domain,omitempty"`
	FromRegisteredDomain    string `json:"from_registered_domain,omitempty"`
	FromDomainSuspect       bool   `json:"from_domain_suspect,omitempty"`
	ReplyTo                 string `json:"reply_to,omitempty"`
	ReplyToDomain           string `json:"reply_to_domain,omitempty"`
	ReplyToRegisteredDomain string `json:"reply_to_registered_domain,omitempty"`
	ListUnsubscribe         string `json:"list_unsubscribe,omitempty"`

	Links       []string `json:"links,omitempty"`
	LinkDomains []string `json:"link_domains,omitempty"`

	OCRTextLen int             `json:"ocr_text_len,omitempty"`
	OCR        *OCRDiagnostics `json:"ocr,omitempty"`

	DomainWhitelisted bool `json:"domain_whitelisted,omitempty"`
	PhraseWhitelisted bool `json:"phrase_whitelisted,omitempty"`

	BrandImpersonationDetected bool   `json:"brand_impersonation_detected,omitempty"`
	BrandImpersonationReason   string `json:"brand_impersonation_reason,omitempty"`
	CriticalImpersonation      bool   `json:"critical_impersonation,omitempty"`
}

// Accessible reports whether the URL was fetched successfully. ok is false
// when reachability is unknown.
func (m *Metadata) Accessible() (accessible bool, ok bool) {
	if m == nil || m.URLAccessible == nil {
		return false, false
	}
	return *m.URLAccessible, true
}

// CleanSuccess reports a reachable 2xx answer without a redirect chain
func (m *Metadata) CleanSuccess() bool {
	accessible, known := m.Accessible()
	if !known || !accessible {
		return false
	}
	return m.StatusCode >= 200 && m.StatusCode < 300 && !m.RedirectChain
}

// TargetURL returns the final URL after redirects, falling back to the requested URL
func (m *Metadata) TargetURL() string {
	if m == nil {
		return ""
	}
	if m.FinalURL != "" {
		return m.FinalURL
	}
	return m.URL
}

// Clone returns a deep copy so cached metadata is never mutated in place
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return &Metadata{}
	}
	c := *m
	if m.URLAccessible != nil {
		v := *m.URLAccessible
		c.URLAccessible = &v
	}
	c.Links = append([]string(nil), m.Links...)
	c.LinkDomains = append([]string(nil), m.LinkDomains...)
	if m.OCR != nil {
		ocr := *m.OCR
		ocr.DebugImages = append([]string(nil), m.OCR.DebugImages...)
		c.OCR = &ocr
	}
	return &c
}

// Bool is a helper for the tri-state metadata fields
func Bool(v bool) *bool {
	return &v
}

// BrandImpersonationVerdict is the output of the brand guard
type BrandImpersonationVerdict struct {
	Detected              bool     `json:"detected"`
	BrandKey              string   `json:"brand_key,omitempty"`
	CriticalImpersonation bool     `json:"critical_impersonation"`
	ClaimedDomain         string   `json:"claimed_domain,omitempty"`
	OfficialDomains       []string `json:"official_domains,omitempty"`
	Reason                string   `json:"reason,omitempty"`
}

// HeuristicResult is the deterministic rule-engine output
type HeuristicResult struct {
	Score       float64  `json:"score"`
	RedFlags    []string `json:"red_flags"`
	BenignNotes []string `json:"benign_notes"`
}

// ClassifierResult is the (possibly degraded) external classifier verdict
type ClassifierResult struct {
	Label       Label    `json:"label"`
	Risk        float64  `json:"risk"`
	Confidence  float64  `json:"confidence"`
	RedFlags    []string `json:"red_flags"`
	Explanation string   `json:"explanation"`
	Actions     []string `json:"actions"`
	ModelUsed   string   `json:"model_used,omitempty"`
	Degraded    bool     `json:"degraded,omitempty"`
}

// FusedVerdict is the final, presentable result of an analysis
type FusedVerdict struct {
	AnalysisID    string     `json:"analysis_id"`
	SourceType    SourceType `json:"source_type"`
	Label         Label      `json:"label"`
	RiskPct       float64    `json:"risk_pct"`
	ConfidencePct float64    `json:"confidence_pct"`
	RedFlags      []string   `json:"red_flags"`
	BenignNotes   []string   `json:"benign_notes"`
	Actions       []string   `json:"actions"`
	Explanation   string     `json:"explanation,omitempty"`
	Override      string     `json:"override,omitempty"`
	Snippet       string     `json:"snippet,omitempty"`
	Metadata      *Metadata  `json:"metadata,omitempty"`
	AnalyzedAt    time.Time  `json:"analyzed_at"`
}

// CacheEntry is an immutable cached payload. A nil ExpiresAt never expires.
type CacheEntry struct {
	Key       string
	Value     []byte
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// Expired reports whether the entry is past its expiry at the given instant
func (e *CacheEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}

var imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".bmp": true}

// FileInput builds an image or email input from an uploaded file, chosen by
// extension and then by content type
func FileInput(data []byte, filename, contentType string) (AnalysisInput, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))

	switch {
	case imageExtensions[ext] || (ext == "" && strings.HasPrefix(mediaType, "image/")):
		return ImageInput(data, filename), nil
	case ext == ".eml" || (ext == "" && mediaType == "message/rfc822"):
		return EmailInput(data, filename), nil
	}
	return AnalysisInput{}, NewInputError("File type not allowed.", ErrUnsupportedInput)
}
