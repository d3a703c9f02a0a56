// Package lexicon содержит словари оценщика: таблицу лексических
// исправлений распознанной речи и списки технической лексики.
package lexicon

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	yaml "gopkg.in/yaml.v2"
)

// Correction описывает одно исправление: шаблон и замену
type Correction struct {
	pattern     *regexp.Regexp
	Replacement string
}

// Lexicon объединяет все словари, используемые при оценке ответов
type Lexicon struct {
	Corrections       []Correction
	TechnicalTerms    []string
	QualityIndicators map[string][]string
	OffTopicPhrases   []string
}

// dictionaryFile — формат config/dictionary.yaml
type dictionaryFile struct {
	Corrections       map[string]string   `yaml:"corrections"`
	TechnicalTerms    []string            `yaml:"technical_terms"`
	QualityIndicators map[string][]string `yaml:"quality_indicators"`
	OffTopicPhrases   []string            `yaml:"off_topic_phrases"`
}

// Типичные ошибки распознавания речи для технических терминов
var defaultCorrections = []struct{ pattern, replacement string }{
	{`\bsea\s+programming\b`, "C programming"},
	{`\bsee\s+programming\b`, "C programming"},
	{`\bc\s+programming\b`, "C programming"},
	{`\bsea\s+plus\s+plus\b`, "C++"},
	{`\bsee\s+plus\s+plus\b`, "C++"},
	{`\bc\s+plus\s+plus\b`, "C++"},
	{`\bjava\s+script\b`, "JavaScript"},
	{`\bjava\s+scripts\b`, "JavaScript"},
	{`\bpie\s+thon\b`, "Python"},
	{`\bpie\s+ton\b`, "Python"},
	{`\bsee\s+sharp\b`, "C#"},
	{`\bc\s+sharp\b`, "C#"},
	{`\barray\s+list\b`, "ArrayList"},
	{`\blinked\s+list\b`, "Linked List"},
	{`\bhash\s+map\b`, "HashMap"},
	{`\bhash\s+table\b`, "HashTable"},
	{`\bbinary\s+tree\b`, "Binary Tree"},
	{`\bdata\s+base\b`, "database"},
	{`\bstructured\s+query\s+language\b`, "SQL"},
	{`\bsequel\b`, "SQL"},
	{`\breact\s+dot\s+js\b`, "React.js"},
	{`\bnode\s+dot\s+js\b`, "Node.js"},
	{`\bvue\s+dot\s+js\b`, "Vue.js"},
	{`\bangular\s+dot\s+js\b`, "Angular.js"},
}

var defaultTechnicalTerms = []string{
	"algorithm", "data structure", "memory", "pointer", "function", "variable",
	"method", "api", "database", "compile", "debug", "security", "performance",
	"optimization", "testing", "debugging", "struct", "malloc", "free", "array",
	"string", "loop", "recursion", "c programming", "c++", "python", "java",
	"javascript", "sql", "framework", "library", "architecture", "design pattern",
	"microservice", "container", "kubernetes", "docker", "cloud", "rest",
	"graphql", "nosql", "index", "query", "transaction",
}

var defaultQualityIndicators = map[string][]string{
	"specific_example": {"for example", "for instance", "in my experience", "i implemented"},
	"technical_detail": {"because", "therefore", "since", "due to", "the reason is"},
	"methodology":      {"approach", "methodology", "process", "workflow", "pipeline"},
	"comparison":       {"compared to", "versus", "better than", "worse than", "alternative"},
	"problem_solving":  {"solve", "fix", "debug", "troubleshoot", "optimize"},
}

var defaultOffTopicPhrases = []string{
	"i dont know", "i don't know", "not sure", "no idea", "cannot remember", "irrelevant",
}

// Default возвращает встроенные словари
func Default() *Lexicon {
	lex := &Lexicon{
		TechnicalTerms:    defaultTechnicalTerms,
		QualityIndicators: defaultQualityIndicators,
		OffTopicPhrases:   defaultOffTopicPhrases,
	}
	for _, c := range defaultCorrections {
		lex.Corrections = append(lex.Corrections, Correction{
			pattern:     regexp.MustCompile("(?i)" + c.pattern),
			Replacement: c.replacement,
		})
	}
	return lex
}

// Load загружает словари из YAML файла. Пустые секции файла
// замещаются встроенными значениями.
func Load(filename string) (*Lexicon, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", filename, err)
	}

	var file dictionaryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("ошибка парсинга YAML: %w", err)
	}

	lex := Default()

	if len(file.Corrections) > 0 {
		lex.Corrections = nil
		for pattern, replacement := range file.Corrections {
			re, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				return nil, fmt.Errorf("неверный шаблон исправления %q: %w", pattern, err)
			}
			lex.Corrections = append(lex.Corrections, Correction{
				pattern:     re,
				Replacement: replacement,
			})
		}
	}
	if len(file.TechnicalTerms) > 0 {
		lex.TechnicalTerms = file.TechnicalTerms
	}
	if len(file.QualityIndicators) > 0 {
		lex.QualityIndicators = file.QualityIndicators
	}
	if len(file.OffTopicPhrases) > 0 {
		lex.OffTopicPhrases = file.OffTopicPhrases
	}

	return lex, nil
}

// Normalize применяет таблицу лексических исправлений к ответу
func (l *Lexicon) Normalize(text string) string {
	if text == "" {
		return text
	}
	normalized := text
	for _, c := range l.Corrections {
		normalized = c.pattern.ReplaceAllString(normalized, c.Replacement)
	}
	return normalized
}

// CountTechnicalTerms считает распознанные технические термины
func (l *Lexicon) CountTechnicalTerms(text string) int {
	lower := strings.ToLower(text)
	count := 0
	for _, term := range l.TechnicalTerms {
		if strings.Contains(lower, term) {
			count++
		}
	}
	return count
}

// CountQualityCategories считает категории качественных индикаторов,
// каждая категория учитывается не более одного раза
func (l *Lexicon) CountQualityCategories(text string) int {
	lower := strings.ToLower(text)
	count := 0
	for _, keywords := range l.QualityIndicators {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				count++
				break
			}
		}
	}
	return count
}

// ContainsOffTopicPhrase сообщает о наличии фраз класса "не знаю"
func (l *Lexicon) ContainsOffTopicPhrase(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range l.OffTopicPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
