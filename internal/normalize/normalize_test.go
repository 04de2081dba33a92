package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/everstacklabs/modelmeter/internal/catalog"
)

func entry(id, name, desc string) catalog.Entry {
	return catalog.Entry{
		ID:          id,
		Name:        name,
		Description: desc,
		Architecture: catalog.Architecture{
			InputModalities:  []string{"text"},
			OutputModalities: []string{"text"},
		},
		Pricing: catalog.Pricing{Prompt: "0.000001", Completion: "0.000002"},
	}
}

func TestCostIsPerTokenTimesThousand(t *testing.T) {
	prices := []string{"0", "0.0000025", "0.00001", "0.000000075", "0.06", "1"}
	for _, p := range prices {
		t.Run(p, func(t *testing.T) {
			e := entry("openai/x", "X", "")
			e.Pricing.Prompt = p
			e.Pricing.Completion = p

			want := decimal.RequireFromString(p).Mul(decimal.NewFromInt(1000)).InexactFloat64()
			rec := ToPricing(e)
			assert.Equal(t, want, rec.InputCost)
			assert.Equal(t, want, rec.OutputCost)
			assert.Equal(t, want, ToComparison(e).InputCost)
		})
	}
}

func TestPerThousandFallbacks(t *testing.T) {
	for _, p := range []string{"", "free", "-0.5", "1e-x"} {
		assert.Zero(t, PerThousand(p), "price %q", p)
	}
	assert.Equal(t, 3.0, PerThousand(" 0.003 "))
}

func TestProvider(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"openai/gpt-4o", "OpenAI"},
		{"meta-llama/llama-3.1-8b-instruct", "Meta"},
		{"mistralai/mistral-large", "Mistral AI"},
		{"x-ai/grok-2", "xAI"},
		{"some-new_lab/model", "Some New Lab"},
		{"auto", "Unknown"},
		{"", "Unknown"},
		{"/orphan", "Unknown"},
		{"--/odd", "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, Provider(tt.id))
		})
	}
}

func TestProviderWithoutSlashIsUnknown(t *testing.T) {
	for _, id := range []string{"gpt-4o", "openrouter-auto", "Claude 3"} {
		e := entry(id, "Model", "desc")
		assert.Equal(t, UnknownProvider, ToPricing(e).Provider)
		assert.Equal(t, UnknownProvider, ToComparison(e).Provider)
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "GPT-4o", DisplayName("OpenAI: GPT-4o"))
	assert.Equal(t, "Llama 3.1 8B Instruct", DisplayName("Meta: Llama 3.1 8B Instruct"))
	assert.Equal(t, "GPT-4o", DisplayName("GPT-4o"))
	assert.Equal(t, "Auto Router", DisplayName("Auto Router"))
	assert.Equal(t, "Trailing: ", DisplayName("Trailing: "))
}

func TestCategoryPrecedence(t *testing.T) {
	tests := []struct {
		name string
		e    catalog.Entry
		want catalog.Category
	}{
		{"flagship beats efficient", entry("openai/gpt-4o-mini", "GPT-4o mini", ""), catalog.CategoryFlagship},
		{"flagship word in description", entry("acme/big", "Big", "Our flagship model"), catalog.CategoryFlagship},
		{"efficient beats specialized", entry("acme/code-fast", "Code Fast", ""), catalog.CategoryEfficient},
		{"haiku", entry("anthropic/claude-3-haiku", "Claude 3 Haiku", ""), catalog.CategoryEfficient},
		{"specialized", entry("acme/coder", "Coder", "Writes code."), catalog.CategorySpecialized},
		{"vision", entry("acme/eye", "Eye", "A vision model"), catalog.CategorySpecialized},
		{"default", entry("acme/plain", "Plain", "General assistant."), catalog.CategoryEfficient},
		{"case-insensitive", entry("ACME/X", "FLAGSHIP", ""), catalog.CategoryFlagship},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToPricing(tt.e).Category)
			assert.Equal(t, tt.want, ToComparison(tt.e).Category)
		})
	}
}

func TestParameters(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		display string
		ctx     int
		want    string
	}{
		{"size token", "meta-llama/llama-3.1-70b-instruct", "Meta: Llama 3.1 70B Instruct", 131072, "70B"},
		{"largest size", "meta-llama/llama-3.1-405b", "Meta: Llama 3.1 405B", 0, "405B"},
		{"size token is a plain substring", "meta-llama/llama-2-13b-chat", "Meta: Llama 2 13B Chat", 4096, "3B"},
		{"mixture size token", "mistralai/mixtral-8x7b", "Mixtral 8x7B", 32768, "7B"},
		{"family table", "anthropic/claude-3.5-sonnet", "Claude 3.5 Sonnet", 200000, "70B-175B"},
		{"mini family first", "openai/gpt-4o-mini", "GPT-4o mini", 128000, "8B-20B"},
		{"1M bucket", "acme/long", "Long", 1_000_000, "175B+"},
		{"200K bucket", "acme/wide", "Wide", 200_000, "70B-175B"},
		{"32K bucket", "acme/mid", "Mid", 32_768, "7B-70B"},
		{"unknown", "acme/small", "Small", 8192, "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entry(tt.id, tt.display, "")
			e.ContextLength = tt.ctx
			assert.Equal(t, tt.want, ToComparison(e).Parameters)
		})
	}
}

func TestMultimodal(t *testing.T) {
	two := entry("acme/a", "A", "")
	two.Architecture.InputModalities = []string{"text", "audio"}

	image := entry("acme/b", "B", "")
	image.Architecture.InputModalities = []string{"image"}

	tests := []struct {
		name string
		e    catalog.Entry
		want bool
	}{
		{"two inputs", two, true},
		{"image input", image, true},
		{"mentions vision", entry("acme/c", "C Vision", ""), true},
		{"mentions multimodal", entry("acme/d", "D", "A multimodal assistant"), true},
		{"text only", entry("acme/e", "E", "Text model"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToComparison(tt.e).Multimodal)
		})
	}
}

func TestLanguages(t *testing.T) {
	assert.Equal(t, 100, ToComparison(entry("openai/gpt-4-turbo", "GPT-4 Turbo", "")).Languages)
	assert.Equal(t, 100, ToComparison(entry("google/gemini-pro", "Gemini Pro", "")).Languages)
	assert.Equal(t, 100, ToComparison(entry("anthropic/claude-3.5-sonnet", "Claude 3.5 Sonnet", "")).Languages)
	assert.Equal(t, 20, ToComparison(entry("anthropic/claude-2.1", "Claude v2.1", "")).Languages)
	assert.Equal(t, 50, ToComparison(entry("meta-llama/llama-3-8b", "Llama 3 8B", "")).Languages)
	assert.Equal(t, 50, ToComparison(entry("mistralai/mistral-7b", "Mistral 7B", "")).Languages)
	assert.Equal(t, 20, ToComparison(entry("acme/x", "X", "")).Languages)
}

func TestComparisonScoresAreDefault(t *testing.T) {
	rec := ToComparison(entry("openai/gpt-4o", "OpenAI: GPT-4o", "Flagship."))
	for _, s := range []int{rec.Speed, rec.Reasoning, rec.Coding, rec.Creative} {
		assert.Equal(t, catalog.DefaultScore, s)
	}
	assert.Equal(t, "GPT-4o", rec.Name)
}

func TestContextWindow(t *testing.T) {
	e := entry("acme/x", "X", "")
	e.TopProvider.ContextLength = 65536
	assert.Equal(t, 65536, ToComparison(e).ContextWindow, "falls back to top provider")
	assert.Equal(t, "65K tokens", ToPricing(e).ContextWindow)

	tests := map[int]string{
		0:         "",
		512:       "512 tokens",
		128000:    "128K tokens",
		1_048_576: "1M tokens",
		1_500_000: "1.5M tokens",
		2_000_000: "2M tokens",
	}
	for n, want := range tests {
		assert.Equal(t, want, ContextWindowLabel(n))
	}
}

func TestProjectionsDoNotMutateEntry(t *testing.T) {
	e := entry("openai/gpt-4o", "OpenAI: GPT-4o", "desc")
	before := e
	before.Architecture.InputModalities = append([]string(nil), e.Architecture.InputModalities...)

	_ = ToPricing(e)
	_ = ToComparison(e)
	assert.Equal(t, before, e)
}
