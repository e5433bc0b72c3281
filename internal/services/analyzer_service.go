package services

import (
	"context"
	"encoding/base64"
	"errors"
	"math"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"inos/internal/config"
	"inos/internal/models/response_models"
	"inos/internal/models/state_models"
	"inos/pkg/metrics"
	"inos/pkg/utils"
)

const darkCirclePrompt = `Tu es un expert dermatologue spécialisé dans l'analyse des cernes. Analyse cette photo de visage et fournis une évaluation détaillée des cernes.

IMPORTANT: Réponds UNIQUEMENT avec un objet JSON valide, sans texte avant ou après.

Analyse les éléments suivants:
1. Type de cernes (un seul parmi: "vascular" pour bleu/violet, "pigmented" pour marron, "structural" pour ombres, "mixed" pour combinaison)
2. Intensité ("mild", "moderate", ou "severe")
3. Score global de 0 à 100 (0 = pas de cernes, 100 = cernes très prononcés)
4. Score pour chaque œil séparément
5. Recommandations personnalisées en français

Format JSON attendu:
{
  "darkCircleType": "vascular" | "pigmented" | "structural" | "mixed",
  "intensity": "mild" | "moderate" | "severe",
  "score": number (0-100),
  "leftEyeScore": number (0-100),
  "rightEyeScore": number (0-100),
  "recommendations": ["conseil 1", "conseil 2", "conseil 3", "conseil 4"],
  "analysis": "Description courte de l'analyse en français"
}`

const fullFacePrompt = `Tu es un expert dermatologue utilisant une technologie avancée d'analyse de peau. Analyse cette photo de visage et fournis une évaluation complète et détaillée de l'état de la peau.

IMPORTANT: Réponds UNIQUEMENT avec un objet JSON valide, sans texte avant ou après.

Analyse les métriques suivantes sur une échelle de 0 à 100 (100 = excellent état):
1. Score Acné - Évalue la présence d'imperfections, boutons, points noirs
2. Score Hydratation - Niveau d'hydratation de la peau
3. Score Rides/Lignes - Présence de rides et ridules (100 = pas de rides)
4. Score Pigmentation - Uniformité du teint, présence de taches (100 = teint uniforme)
5. Score Pores - Taille et visibilité des pores (100 = pores invisibles)
6. Score Rougeurs - Présence de rougeurs (100 = pas de rougeurs)
7. Score Translucidité - Éclat et luminosité de la peau
8. Score Uniformité - Texture générale de la peau
9. État Zone Oeil - Condition du contour des yeux (cernes, poches, rides)

Pour chaque métrique, analyse aussi par zone:
- Front (forehead)
- Joue gauche (leftCheek)
- Joue droite (rightCheek)
- Nez (nose)
- Menton (chin)
- Zone oeil gauche (leftEyeArea)
- Zone oeil droit (rightEyeArea)

Évalue aussi:
- Âge perçu (perceived age based on skin)
- Âge des yeux (eye age)
- Teint de peau: "very_light", "light", "intermediate", "tan", "brown", "dark"
- Score ITA (Individual Typology Angle) de -30 à 90

Format JSON attendu:
{
  "perceivedAge": number,
  "eyeAge": number,
  "skinTone": "very_light" | "light" | "intermediate" | "tan" | "brown" | "dark",
  "itaScore": number,
  "acne": { "overall": number, "forehead": number, "leftCheek": number, "rightCheek": number, "nose": number, "chin": number },
  "hydration": { "overall": number },
  "lines": { "overall": number, "forehead": number, "leftCheek": number, "rightCheek": number, "leftEyeArea": number, "rightEyeArea": number },
  "pigmentation": { "overall": number, "forehead": number, "leftCheek": number, "rightCheek": number, "nose": number, "chin": number },
  "pores": { "overall": number, "forehead": number, "leftCheek": number, "rightCheek": number, "nose": number },
  "redness": { "overall": number, "forehead": number, "leftCheek": number, "rightCheek": number, "nose": number },
  "translucency": { "overall": number, "forehead": number, "leftCheek": number, "rightCheek": number },
  "uniformness": { "overall": number, "leftCheek": number, "rightCheek": number },
  "eyeAreaCondition": { "overall": number, "leftEyeArea": number, "rightEyeArea": number },
  "recommendations": ["conseil 1", "conseil 2", "conseil 3", "conseil 4", "conseil 5"],
  "priorityAreas": ["zone prioritaire 1", "zone prioritaire 2"]
}`

const (
	minAPIKeyLength  = 10
	minPayloadLength = 100
	maxRecs          = 6
	maxPriorityAreas = 3

	defaultAnalysisText = "Analyse complétée"
	mockAnalysisText    = "Analyse simulée (API non configurée)"

	kindDarkCircles = "dark_circles"
	kindFullFace    = "full_face"
)

var (
	dataURLPrefix = regexp.MustCompile(`^data:image/\w+;base64,`)

	errNoModel        = errors.New("analyzer: no model configured")
	errPayloadTooThin = errors.New("analyzer: image payload too small")
	errRateLimited    = errors.New("analyzer: rate limited")
	errNoJSON         = errors.New("analyzer: no JSON object in model output")
)

var baseRecommendations = []string{
	"Appliquez une crème contour des yeux matin et soir",
	"Dormez au moins 7-8 heures par nuit",
	"Hydratez-vous régulièrement (2L/jour)",
}

var typeRecommendations = map[state_models.DarkCircleType][]string{
	state_models.DarkCircleVascular: {
		"Utilisez des actifs décongestionnants (caféine, vitamine K)",
		"Appliquez des compresses froides le matin",
	},
	state_models.DarkCirclePigmented: {
		"Utilisez un sérum à la vitamine C",
		"Appliquez une protection solaire SPF50 quotidiennement",
	},
	state_models.DarkCircleStructural: {
		"Utilisez un contour des yeux avec acide hyaluronique",
		"Pratiquez des massages lymphatiques doux",
	},
	state_models.DarkCircleMixed: {
		"Adoptez une routine combinée multi-actifs",
		"Alternez les soins selon les zones",
	},
}

var defaultFullFaceRecommendations = []string{
	"Utilisez une crème hydratante adaptée à votre type de peau",
	"Appliquez une protection solaire SPF50 quotidiennement",
	"Nettoyez votre visage matin et soir",
	"Intégrez un sérum antioxydant (vitamine C)",
	"Hydratez-vous régulièrement (2L d'eau par jour)",
}

var defaultPriorityAreas = []string{"Hydratation", "Contour des yeux"}

// metricSpec describes one full-face metric: its key in the model output, display name,
// fallback overall score and whether it counts toward the overall score.
type metricSpec struct {
	key         string
	name        string
	description string
	fallback    int
	inOverall   bool
}

var metricSpecs = []metricSpec{
	{"acne", "Acné", "Évalue la présence d'imperfections et boutons", 80, true},
	{"hydration", "Hydratation", "Niveau d'hydratation de la peau", 50, true},
	{"lines", "Rides", "Présence de rides et ridules", 70, true},
	{"pigmentation", "Pigmentation", "Uniformité du teint", 80, true},
	{"pores", "Pores", "Visibilité des pores", 50, true},
	{"redness", "Rougeurs", "Présence de rougeurs", 50, true},
	{"translucency", "Éclat", "Luminosité et éclat", 50, true},
	{"uniformness", "Uniformité", "Texture générale", 50, true},
	{"eyeAreaCondition", "Zone Yeux", "État du contour des yeux", 50, false},
}

type AnalyzerServiceInterface interface {
	AnalyzeDarkCircles(ctx context.Context, imageBase64, mimeType string) response_models.DarkCircleAnalysisResult
	AnalyzeFullFace(ctx context.Context, imageBase64, mimeType string) response_models.FullFaceAnalysisResult
}

type AnalyzerService struct {
	client  utils.VisionClientInterface
	cfg     config.AnalyzerConfig
	limiter *rate.Limiter
	logger  *zap.Logger
	metrics *metrics.Metrics

	rngMu sync.Mutex
	rng   *rand.Rand
	now   func() time.Time
}

// NewAnalyzerService wraps client with the mock fallback. client may be nil, in which
// case every call is answered by the mock.
func NewAnalyzerService(
	client utils.VisionClientInterface,
	cfg config.AnalyzerConfig,
	logger *zap.Logger,
	m *metrics.Metrics,
) *AnalyzerService {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), cfg.RatePerMinute)
	}
	if cfg.BasicTimeout <= 0 {
		cfg.BasicTimeout = 30 * time.Second
	}
	if cfg.FullFaceTimeout <= 0 {
		cfg.FullFaceTimeout = 45 * time.Second
	}

	return &AnalyzerService{
		client:  client,
		cfg:     cfg,
		limiter: limiter,
		logger:  logger.Named("analyzer"),
		metrics: m,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
	}
}

func (a *AnalyzerService) AnalyzeDarkCircles(ctx context.Context, imageBase64, mimeType string) response_models.DarkCircleAnalysisResult {
	raw, err := a.generate(ctx, imageBase64, mimeType, darkCirclePrompt, a.cfg.BasicTimeout, 1024)
	if err != nil {
		a.logger.Warn("dark circle analysis falls back to mock", zap.Error(err))
		a.metrics.AnalyzerResult(kindDarkCircles, "mock")
		return response_models.DarkCircleAnalysisResult{Success: true, Data: a.mockDarkCircles()}
	}

	a.metrics.AnalyzerResult(kindDarkCircles, "model")
	return response_models.DarkCircleAnalysisResult{Success: true, Data: normalizeDarkCircles(raw)}
}

func (a *AnalyzerService) AnalyzeFullFace(ctx context.Context, imageBase64, mimeType string) response_models.FullFaceAnalysisResult {
	raw, err := a.generate(ctx, imageBase64, mimeType, fullFacePrompt, a.cfg.FullFaceTimeout, 2048)
	if err != nil {
		a.logger.Warn("full face analysis falls back to mock", zap.Error(err))
		a.metrics.AnalyzerResult(kindFullFace, "mock")
		return response_models.FullFaceAnalysisResult{Success: true, Data: a.mockFullFace()}
	}

	result := normalizeFullFace(raw)
	result.ID = utils.NewID("full")
	result.Date = a.now().UTC().Format(time.RFC3339)
	a.metrics.AnalyzerResult(kindFullFace, "model")
	return response_models.FullFaceAnalysisResult{Success: true, Data: result}
}

// generate runs every precondition and the model call, returning the extracted JSON
// object. Any error means the caller should use the mock.
func (a *AnalyzerService) generate(
	ctx context.Context,
	imageBase64, mimeType, prompt string,
	timeout time.Duration,
	maxTokens int32,
) (string, error) {
	if a.client == nil || len(a.cfg.APIKey()) < minAPIKeyLength {
		return "", errNoModel
	}

	payload := dataURLPrefix.ReplaceAllString(strings.TrimSpace(imageBase64), "")
	if len(payload) < minPayloadLength {
		return "", errPayloadTooThin
	}
	image, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", errors.Join(utils.ErrInvalidImagePayload, err)
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	if !a.limiter.Allow() {
		return "", errRateLimited
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	text, err := a.client.GenerateFromImage(callCtx, prompt, image, mimeType, utils.GenerationOptions{
		Temperature:     0.3,
		MaxOutputTokens: maxTokens,
		JSONOnly:        true,
	})
	if err != nil {
		return "", err
	}
	a.logger.Debug("model answered", zap.Duration("took", time.Since(start)), zap.Int("chars", len(text)))

	obj, ok := utils.ExtractJSONObject(text)
	if !ok || !gjson.Valid(obj) {
		return "", errNoJSON
	}
	return obj, nil
}

func normalizeDarkCircles(raw string) *response_models.DarkCircleData {
	res := gjson.Parse(raw)

	dcType := validDarkCircleType(res.Get("darkCircleType").String())
	intensity := validIntensity(res.Get("intensity").String())

	score := 50.0
	if v, ok := number(res.Get("score")); ok {
		score = v
	}
	left, ok := number(res.Get("leftEyeScore"))
	if !ok {
		left = score
	}
	right, ok := number(res.Get("rightEyeScore"))
	if !ok {
		right = score
	}

	recs := stringList(res.Get("recommendations"), maxRecs)
	if len(recs) == 0 {
		recs = defaultRecommendations(dcType)
	}

	analysis := strings.TrimSpace(res.Get("analysis").String())
	if analysis == "" {
		analysis = defaultAnalysisText
	}

	return &response_models.DarkCircleData{
		DarkCircleType:  dcType,
		Intensity:       intensity,
		Score:           clampRound(score, 0, 100),
		LeftEyeScore:    clampRound(left, 0, 100),
		RightEyeScore:   clampRound(right, 0, 100),
		Recommendations: recs,
		Analysis:        analysis,
	}
}

func normalizeFullFace(raw string) *state_models.FullFaceAnalysis {
	res := gjson.Parse(raw)

	out := &state_models.FullFaceAnalysis{
		PerceivedAge: numberOr(res.Get("perceivedAge"), 35, 0, 100),
		EyeAge:       numberOr(res.Get("eyeAge"), 35, 0, 100),
		SkinTone:     validSkinTone(res.Get("skinTone").String()),
		ITAScore:     numberOr(res.Get("itaScore"), 30, -30, 90),
	}

	sum, count := 0, 0
	metrics := out.Metrics()
	for i, spec := range metricSpecs {
		obj := res.Get(spec.key)
		*metrics[i] = buildMetric(spec, obj)

		if spec.inOverall {
			if _, ok := number(obj.Get("overall")); ok {
				sum += metrics[i].Value
				count++
			}
		}
	}

	out.OverallScore = 60
	if count > 0 {
		out.OverallScore = int(math.Round(float64(sum) / float64(count)))
	}

	out.Recommendations = stringList(res.Get("recommendations"), maxRecs)
	if len(out.Recommendations) == 0 {
		out.Recommendations = append([]string(nil), defaultFullFaceRecommendations...)
	}
	out.PriorityAreas = stringList(res.Get("priorityAreas"), maxPriorityAreas)
	if len(out.PriorityAreas) == 0 {
		out.PriorityAreas = append([]string(nil), defaultPriorityAreas...)
	}
	return out
}

// defaultMetricScore applies when a metric is present but carries no usable
// overall score. A missing or null metric takes its own fallback instead.
const defaultMetricScore = 50

func buildMetric(spec metricSpec, obj gjson.Result) state_models.SkinMetric {
	fallback := defaultMetricScore
	if !obj.Exists() || obj.Type == gjson.Null {
		fallback = spec.fallback
	}
	overall := numberOr(obj.Get("overall"), fallback, 0, 100)

	zone := func(key string) *state_models.ZoneScore {
		v, ok := number(obj.Get(key))
		if !ok {
			return nil
		}
		s := clampRound(v, 0, 100)
		return &state_models.ZoneScore{Score: s, Condition: state_models.ConditionFor(s)}
	}

	return state_models.SkinMetric{
		Name:      spec.name,
		Value:     overall,
		Condition: state_models.ConditionFor(overall),
		Zones: state_models.FaceZoneScores{
			Forehead:     zone("forehead"),
			LeftCheek:    zone("leftCheek"),
			RightCheek:   zone("rightCheek"),
			Nose:         zone("nose"),
			Chin:         zone("chin"),
			LeftEyeArea:  zone("leftEyeArea"),
			RightEyeArea: zone("rightEyeArea"),
		},
		Description: spec.description,
	}
}

func (a *AnalyzerService) mockDarkCircles() *response_models.DarkCircleData {
	a.rngMu.Lock()
	dcType := state_models.DarkCircleTypes[a.rng.Intn(len(state_models.DarkCircleTypes))]
	intensity := state_models.DarkCircleIntensities[a.rng.Intn(len(state_models.DarkCircleIntensities))]
	score := a.rng.Intn(40) + 30
	left := score + a.rng.Intn(10) - 5
	right := score + a.rng.Intn(10) - 5
	a.rngMu.Unlock()

	return &response_models.DarkCircleData{
		DarkCircleType:  dcType,
		Intensity:       intensity,
		Score:           score,
		LeftEyeScore:    clampInt(left, 0, 100),
		RightEyeScore:   clampInt(right, 0, 100),
		Recommendations: defaultRecommendations(dcType),
		Analysis:        mockAnalysisText,
		Simulated:       true,
	}
}

func (a *AnalyzerService) mockFullFace() *state_models.FullFaceAnalysis {
	mock := `{
		"acne": {"overall": 97, "forehead": 100, "leftCheek": 100, "rightCheek": 100, "nose": 100, "chin": 78},
		"hydration": {"overall": 30},
		"lines": {"overall": 94, "forehead": 98, "leftCheek": 100, "rightCheek": 100, "leftEyeArea": 95, "rightEyeArea": 91},
		"pigmentation": {"overall": 96, "forehead": 95, "leftCheek": 92, "rightCheek": 100, "nose": 100, "chin": 100},
		"pores": {"overall": 41, "forehead": 31, "leftCheek": 48, "rightCheek": 52, "nose": 42},
		"redness": {"overall": 28, "forehead": 49, "leftCheek": 21, "rightCheek": 16, "nose": 37},
		"translucency": {"overall": 40, "forehead": 38, "leftCheek": 32, "rightCheek": 49},
		"uniformness": {"overall": 48, "leftCheek": 40, "rightCheek": 44},
		"eyeAreaCondition": {"overall": 37, "leftEyeArea": 34, "rightEyeArea": 40}
	}`

	out := normalizeFullFace(mock)
	out.ID = utils.NewID("full")
	out.Date = a.now().UTC().Format(time.RFC3339)
	out.PerceivedAge = 38
	out.EyeAge = 36
	out.SkinTone = state_models.SkinToneIntermediate
	out.ITAScore = 28
	out.OverallScore = 57
	out.Recommendations = []string{
		"Augmentez votre hydratation avec un sérum à l'acide hyaluronique",
		"Utilisez une crème anti-rougeurs pour calmer la peau",
		"Appliquez un soin réducteur de pores sur la zone T",
		"Intégrez un contour des yeux riche matin et soir",
		"Protégez votre peau du soleil avec un SPF50",
	}
	out.PriorityAreas = []string{"Hydratation", "Rougeurs", "Pores"}
	out.Simulated = true
	return out
}

func defaultRecommendations(t state_models.DarkCircleType) []string {
	recs := make([]string, 0, len(typeRecommendations[t])+len(baseRecommendations))
	recs = append(recs, typeRecommendations[t]...)
	return append(recs, baseRecommendations...)
}

func validDarkCircleType(v string) state_models.DarkCircleType {
	for _, t := range state_models.DarkCircleTypes {
		if string(t) == v {
			return t
		}
	}
	return state_models.DarkCircleMixed
}

func validIntensity(v string) state_models.DarkCircleIntensity {
	for _, i := range state_models.DarkCircleIntensities {
		if string(i) == v {
			return i
		}
	}
	return state_models.IntensityModerate
}

func validSkinTone(v string) state_models.SkinTone {
	for _, t := range state_models.SkinTones {
		if string(t) == v {
			return t
		}
	}
	return state_models.SkinToneIntermediate
}

// number accepts JSON numbers and numeric strings.
func number(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Float(), true
	case gjson.String:
		v, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	default:
		return 0, false
	}
}

func numberOr(r gjson.Result, fallback, lo, hi int) int {
	v, ok := number(r)
	if !ok {
		return clampInt(fallback, lo, hi)
	}
	return clampRound(v, lo, hi)
}

func stringList(r gjson.Result, limit int) []string {
	if !r.IsArray() {
		return nil
	}
	var out []string
	for _, item := range r.Array() {
		if item.Type != gjson.String {
			continue
		}
		if s := strings.TrimSpace(item.Str); s != "" {
			out = append(out, s)
		}
		if len(out) == limit {
			break
		}
	}
	return out
}

func clampRound(v float64, lo, hi int) int {
	v = math.Max(float64(lo), math.Min(float64(hi), v))
	return clampInt(int(math.Round(v)), lo, hi)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
