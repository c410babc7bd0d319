package generation

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestVideoFromImageSendsMultipart(t *testing.T) {
	var gotFilename, gotContentType string
	var gotData []byte
	stub := newStubBackend(t, func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("image")
		if err == nil {
			gotFilename = header.Filename
			gotContentType = header.Header.Get("Content-Type")
			gotData, _ = io.ReadAll(file)
		}
		respondJSON(http.StatusOK, `{"video_b64":"dmlkZW8="}`)(w, r)
	})

	result, err := stub.client(Options{}).Submit(context.Background(), VideoFromImage(&Upload{Filename: "cat.png", Data: pngHeader}))
	require.NoError(t, err)

	assert.Equal(t, KindVideo, result.Kind)
	assert.Equal(t, []byte("video"), result.Data)
	assert.Equal(t, "dmlkZW8=", result.Encoded)
	assert.Empty(t, result.VideoURL)

	assert.Equal(t, "/generate-video", stub.lastReq.URL.Path)
	assert.Contains(t, stub.lastReq.Header.Get("Content-Type"), "multipart/form-data")
	assert.Equal(t, "cat.png", gotFilename)
	assert.Equal(t, "image/png", gotContentType)
	assert.Equal(t, pngHeader, gotData)
}

func TestVideoVariantsAreStrictAboutResponseField(t *testing.T) {
	// 이미지 변형은 video_url 응답을 받아들이지 않음
	stub := newStubBackend(t, respondJSON(http.StatusOK, `{"video_url":"https://cdn.example.com/v.mp4"}`))
	_, err := stub.client(Options{}).Submit(context.Background(), VideoFromImage(&Upload{Filename: "cat.png", Data: pngHeader}))
	assert.True(t, IsKind(err, MalformedResponse))

	// 프롬프트 변형은 video_b64 응답을 받아들이지 않음
	stub = newStubBackend(t, respondJSON(http.StatusOK, `{"video_b64":"dmlkZW8="}`))
	_, err = stub.client(Options{}).Submit(context.Background(), VideoFromPrompt("ocean waves"))
	assert.True(t, IsKind(err, MalformedResponse))
}

func TestVideoFromPrompt(t *testing.T) {
	stub := newStubBackend(t, respondJSON(http.StatusOK, `{"video_url":"https://cdn.example.com/v.mp4"}`))

	result, err := stub.client(Options{}).Submit(context.Background(), VideoFromPrompt("ocean waves"))
	require.NoError(t, err)

	assert.Equal(t, KindVideo, result.Kind)
	assert.Equal(t, "https://cdn.example.com/v.mp4", result.VideoURL)
	assert.Nil(t, result.Data)
	assert.Equal(t, "application/json", stub.lastReq.Header.Get("Content-Type"))
	assert.Equal(t, "ocean waves", decodeJSONBody(t, stub.lastBody)["prompt"])

	stub = newStubBackend(t, respondJSON(http.StatusOK, `{"video_url":"not a url"}`))
	_, err = stub.client(Options{}).Submit(context.Background(), VideoFromPrompt("ocean waves"))
	assert.True(t, IsKind(err, MalformedResponse))
}

func TestUpscaleSendsImageAndPrompt(t *testing.T) {
	var gotPrompt string
	var gotImage bool
	stub := newStubBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := r.FormFile("image"); err == nil {
			gotImage = true
		}
		gotPrompt = r.FormValue("prompt")
		respondJSON(http.StatusOK, `{"image_b64":"Zm9v"}`)(w, r)
	})

	result, err := stub.client(Options{}).Submit(context.Background(),
		UpscaleRequest(&Upload{Filename: "small.png", Data: pngHeader}, "  make it crisp "))
	require.NoError(t, err)

	assert.Equal(t, KindUpscale, result.Kind)
	assert.Equal(t, []byte("foo"), result.Data)
	assert.Equal(t, "/upscale-image", stub.lastReq.URL.Path)
	assert.True(t, gotImage)
	assert.Equal(t, "make it crisp", gotPrompt)
}

func TestAnalysisFillsMissingCategories(t *testing.T) {
	stub := newStubBackend(t, respondJSON(http.StatusOK, `{"strengths":["local sourcing"],"weaknesses":[]}`))

	result, err := stub.client(Options{}).Submit(context.Background(), AnalysisRequest("coffee shop", "SWOT"))
	require.NoError(t, err)

	require.NotNil(t, result.Analysis)
	assert.Equal(t, KindAnalysis, result.Kind)
	assert.Equal(t, SWOT, result.Analysis.Type)
	assert.Equal(t, FieldMapVersion, result.Analysis.FieldMap)
	assert.Equal(t, []string{"strengths", "weaknesses", "opportunities", "threats"}, result.Analysis.Order)
	assert.Equal(t, []string{"local sourcing"}, result.Analysis.Findings["strengths"])

	for _, category := range []string{"weaknesses", "opportunities", "threats"} {
		findings, present := result.Analysis.Findings[category]
		assert.True(t, present, category)
		assert.NotNil(t, findings, category)
		assert.Empty(t, findings, category)
	}

	body := decodeJSONBody(t, stub.lastBody)
	assert.Equal(t, "coffee shop", body["topic"])
	assert.Equal(t, "SWOT", body["analysis_type"])
}

func TestAnalysisFieldAliases(t *testing.T) {
	tests := []struct {
		name         string
		analysisType string
		body         string
		category     string
		want         []string
	}{
		{"title case swot", "swot", `{"Strengths":["brand"]}`, "strengths", []string{"brand"}},
		{"upper case swot", "SWOT", `{"THREATS":["chains"]}`, "threats", []string{"chains"}},
		{"scalar instead of list", "SWOT", `{"opportunities":"delivery apps"}`, "opportunities", []string{"delivery apps"}},
		{"pestle title case", "PESTLE", `{"Political":["zoning"],"Environmental":["waste"]}`, "environmental", []string{"waste"}},
		{"pestel spelling", "pestel", `{"legal":["permits"]}`, "legal", []string{"permits"}},
		{"porter spaced names", "Porters Five Forces", `{"Threat of New Entrants":["low barriers"]}`, "threat_of_new_entrants", []string{"low barriers"}},
		{"porter camel case", "Porter's Five Forces", `{"competitiveRivalry":["many cafes"]}`, "competitive_rivalry", []string{"many cafes"}},
		{"porter loose key", "Porters Five Forces", `{"Bargaining-Power-Of-Buyers":["price sensitive"]}`, "bargaining_power_of_buyers", []string{"price sensitive"}},
		{"object value ignored", "SWOT", `{"strengths":{"a":"b"}}`, "strengths", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newStubBackend(t, respondJSON(http.StatusOK, tt.body))
			result, err := stub.client(Options{}).Submit(context.Background(), AnalysisRequest("coffee shop", tt.analysisType))
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Analysis.Category(tt.category))
		})
	}
}

func TestAnalysisCategoriesTable(t *testing.T) {
	assert.Equal(t, []string{"political", "economic", "social", "technological", "legal", "environmental"}, Categories(PESTLE))
	assert.Equal(t, []string{
		"threat_of_new_entrants",
		"bargaining_power_of_suppliers",
		"bargaining_power_of_buyers",
		"threat_of_substitutes",
		"competitive_rivalry",
	}, Categories(PortersFiveForces))
	assert.Empty(t, Categories(CustomerPersonas))
}

func TestAnalysisRejectsNonObjectBody(t *testing.T) {
	stub := newStubBackend(t, respondJSON(http.StatusOK, `["strengths"]`))
	_, err := stub.client(Options{}).Submit(context.Background(), AnalysisRequest("coffee shop", "SWOT"))
	assert.True(t, IsKind(err, MalformedResponse))
}

func TestPersonasDecoding(t *testing.T) {
	stub := newStubBackend(t, respondJSON(http.StatusOK, `{"personas":[
		{"name":"Busy Ben","bio":"Commuter","demographics":"30s, urban","goals":["fast coffee"],"frustrations":["queues","prices"]},
		{"name":"Student Sam","goals":"cheap snacks"},
		"not an object"
	]}`))

	result, err := stub.client(Options{}).Submit(context.Background(), AnalysisRequest("coffee shop", "Customer Personas"))
	require.NoError(t, err)

	assert.Equal(t, KindPersonas, result.Kind)
	assert.Nil(t, result.Analysis)
	require.Len(t, result.Personas, 3)

	assert.Equal(t, Persona{
		Name:         "Busy Ben",
		Bio:          "Commuter",
		Demographics: "30s, urban",
		Goals:        []string{"fast coffee"},
		Frustrations: []string{"queues", "prices"},
	}, result.Personas[0])

	assert.Equal(t, "Student Sam", result.Personas[1].Name)
	assert.Equal(t, "", result.Personas[1].Bio)
	assert.Equal(t, []string{"cheap snacks"}, result.Personas[1].Goals)
	assert.Equal(t, []string{}, result.Personas[1].Frustrations)

	assert.Equal(t, Persona{Goals: []string{}, Frustrations: []string{}}, result.Personas[2])

	body := decodeJSONBody(t, stub.lastBody)
	assert.Equal(t, "/generate-analysis", stub.lastReq.URL.Path)
	assert.Equal(t, "Customer Personas", body["analysis_type"])
}

func TestPersonasRequireArray(t *testing.T) {
	for name, body := range map[string]string{
		"missing":    `{}`,
		"not array":  `{"personas":"none"}`,
		"null value": `{"personas":null}`,
	} {
		t.Run(name, func(t *testing.T) {
			stub := newStubBackend(t, respondJSON(http.StatusOK, body))
			_, err := stub.client(Options{}).Submit(context.Background(), AnalysisRequest("coffee shop", "customer personas"))
			assert.True(t, IsKind(err, MalformedResponse), "got %v", err)
		})
	}

	stub := newStubBackend(t, respondJSON(http.StatusOK, `{"personas":[]}`))
	result, err := stub.client(Options{}).Submit(context.Background(), AnalysisRequest("coffee shop", "Customer Personas"))
	require.NoError(t, err)
	assert.Empty(t, result.Personas)
}

func TestParseAnalysisType(t *testing.T) {
	cases := map[string]AnalysisType{
		"SWOT":                 SWOT,
		" swot ":               SWOT,
		"PESTLE":               PESTLE,
		"Porters Five Forces":  PortersFiveForces,
		"porter's five forces": PortersFiveForces,
		"Customer Personas":    CustomerPersonas,
	}
	for raw, want := range cases {
		got, ok := ParseAnalysisType(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	_, ok := ParseAnalysisType("")
	assert.False(t, ok)
}
