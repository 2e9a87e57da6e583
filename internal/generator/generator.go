// Package generator produces the natural-language questions a project is
// monitored with. No LLM involved: the same project inputs always produce
// the same ordered list.
package generator

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/sovtrack/sovtrack/internal/models"
)

type template struct {
	pattern   string
	queryType string
	perCompetitor bool
}

var templatesEN = []template{
	{pattern: "What is the best %[1]s software?", queryType: models.QueryTypeGeneral},
	{pattern: "Which %[1]s tools would you recommend?", queryType: models.QueryTypeGeneral},
	{pattern: "Top 10 %[1]s solutions", queryType: models.QueryTypeGeneral},
	{pattern: "Top 5 %[1]s providers to consider this year", queryType: models.QueryTypeGeneral},
	{pattern: "How do I choose a %[1]s provider?", queryType: models.QueryTypeGeneral},
	{pattern: "What should I look for when comparing %[1]s options?", queryType: models.QueryTypeGeneral},
	{pattern: "What are good alternatives to %[2]s?", queryType: models.QueryTypeCompetitor, perCompetitor: true},
	{pattern: "Is there anything better than %[2]s for %[1]s?", queryType: models.QueryTypeCompetitor, perCompetitor: true},
	{pattern: "%[3]s vs %[2]s: which is better?", queryType: models.QueryTypeBrandSpecific, perCompetitor: true},
	{pattern: "Is %[3]s a good choice for %[1]s?", queryType: models.QueryTypeBrandSpecific},
	{pattern: "What do users say about %[3]s?", queryType: models.QueryTypeBrandSpecific},
}

var templatesES = []template{
	{pattern: "¿Cuál es el mejor software de %[1]s?", queryType: models.QueryTypeGeneral},
	{pattern: "¿Qué herramientas de %[1]s recomendarías?", queryType: models.QueryTypeGeneral},
	{pattern: "Top 10 soluciones de %[1]s", queryType: models.QueryTypeGeneral},
	{pattern: "Las 5 mejores opciones de %[1]s de este año", queryType: models.QueryTypeGeneral},
	{pattern: "¿Cómo elegir un proveedor de %[1]s?", queryType: models.QueryTypeGeneral},
	{pattern: "¿Qué tener en cuenta al comparar opciones de %[1]s?", queryType: models.QueryTypeGeneral},
	{pattern: "¿Qué alternativas hay a %[2]s?", queryType: models.QueryTypeCompetitor, perCompetitor: true},
	{pattern: "¿Hay algo mejor que %[2]s para %[1]s?", queryType: models.QueryTypeCompetitor, perCompetitor: true},
	{pattern: "%[3]s vs %[2]s: ¿cuál es mejor?", queryType: models.QueryTypeBrandSpecific, perCompetitor: true},
	{pattern: "¿Es %[3]s una buena opción para %[1]s?", queryType: models.QueryTypeBrandSpecific},
	{pattern: "¿Qué opinan los usuarios de %[3]s?", queryType: models.QueryTypeBrandSpecific},
}

// Candidate is one generated question before persistence.
type Candidate struct {
	QueryText string
	QueryType string
	Language  string
}

// Generate produces exactly project.QueriesPerLLM distinct questions for a
// project. Ordering is stable: the candidate pool is shuffled by a PRNG
// seeded on the project id.
func Generate(project *models.Project) []Candidate {
	count := project.QueriesPerLLM
	if count < 1 {
		count = 1
	}

	templates := templatesEN
	if strings.EqualFold(project.Language, "es") {
		templates = templatesES
	}

	industry := project.Industry
	if industry == "" {
		industry = "business"
	}

	var pool []Candidate
	seen := make(map[string]bool)
	add := func(text, queryType string) {
		text = strings.TrimSpace(text)
		if text == "" || seen[text] {
			return
		}
		seen[text] = true
		pool = append(pool, Candidate{QueryText: text, QueryType: queryType, Language: strings.ToLower(project.Language)})
	}

	for _, tpl := range templates {
		if tpl.perCompetitor {
			for _, competitor := range project.Competitors {
				add(fmt.Sprintf(tpl.pattern, industry, competitor, project.BrandName), tpl.queryType)
			}
			continue
		}
		add(fmt.Sprintf(tpl.pattern, industry, "", project.BrandName), tpl.queryType)
	}

	// Numbered variants pad the pool for large queries_per_llm values
	padPattern := "What are the top %d %s options?"
	if strings.EqualFold(project.Language, "es") {
		padPattern = "¿Cuáles son las %d mejores opciones de %s?"
	}
	for n := 3; len(pool) < count && n <= 100; n++ {
		add(fmt.Sprintf(padPattern, n, industry), models.QueryTypeGeneral)
	}

	rng := rand.New(rand.NewSource(project.ID))
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	if len(pool) > count {
		pool = pool[:count]
	}
	return pool
}
