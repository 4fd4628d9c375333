package keywords

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     []string
	}{
		{
			name:     "theft penalty question",
			question: "ما هي عقوبة السرقة؟",
			want:     []string{"عقوبه", "سرقه"},
		},
		{
			name:     "legal terms ranked before ordinary words",
			question: "كيف أرفع دعوى ضد شركة؟",
			want:     []string{"دعوي", "شركه", "ارفع"},
		},
		{
			name:     "all stopwords yields nothing",
			question: "ما هي هذه؟",
			want:     nil,
		},
		{
			name:     "empty question",
			question: "",
			want:     nil,
		},
		{
			name:     "duplicates collapse",
			question: "طلاق طلاق الطلاق",
			want:     []string{"طلاق"},
		},
		{
			name:     "boilerplate legal words excluded",
			question: "ما نص القانون في مادة الإيجار؟",
			want:     []string{"ايجار"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.question)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract(%q) = %v, want %v", tt.question, got, tt.want)
			}
		})
	}
}

func TestExtractCapped(t *testing.T) {
	question := "ميراث طلاق زواج نفقة حضانة وصية سرقة قتل تزوير احتيال رشوة اختلاس"
	got := Extract(question)
	if len(got) != MaxKeywords {
		t.Errorf("expected %d keywords, got %d: %v", MaxKeywords, len(got), got)
	}
}

func TestStripProclitic(t *testing.T) {
	tests := []struct {
		word string
		want string
	}{
		{"السرقه", "سرقه"},
		{"بالعقد", "عقد"},
		{"وللعمال", "عمال"},
		{"للعمال", "عمال"},
		{"لعامل", "عامل"},
		{"الذي", "الذي"}, // remainder would be too short
		{"عقوبه", "عقوبه"},
	}

	for _, tt := range tests {
		if got := StripProclitic(tt.word); got != tt.want {
			t.Errorf("StripProclitic(%q) = %q, want %q", tt.word, got, tt.want)
		}
	}
}

func TestRootForm(t *testing.T) {
	tests := []struct {
		word string
		want string
	}{
		{"عقوبات", "عقوب"},
		{"تجاريه", "تجار"},
		{"عقود", ""},    // no recognized suffix
		{"منهم", ""},    // stem would be too short
		{"التزامات", "التزام"},
	}

	for _, tt := range tests {
		if got := RootForm(tt.word); got != tt.want {
			t.Errorf("RootForm(%q) = %q, want %q", tt.word, got, tt.want)
		}
	}
}

func TestExtractWithVariants(t *testing.T) {
	got := ExtractWithVariants("العقود التجارية")
	want := []string{"العقود", "عقود", "التجاريه", "تجاريه", "تجار"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractWithVariants = %v, want %v", got, want)
	}
}

func TestVocabLookupsNormalized(t *testing.T) {
	// Lookups must succeed regardless of hamza or ta-marbuta spelling.
	if !IsStopword("أين") || !IsStopword("اين") {
		t.Error("stopword lookup should be spelling-insensitive")
	}
	if !IsLegalTerm("عقوبة") || !IsLegalTerm("عقوبه") {
		t.Error("legal term lookup should be spelling-insensitive")
	}
	if IsLegalTerm("مطبخ") {
		t.Error("ordinary word misclassified as legal term")
	}
}
