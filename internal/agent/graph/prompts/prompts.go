// Package prompts renders the embedded system prompts through the eino prompt
// component so prompt callbacks fire.
package prompts

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/jan-sahayak/server/internal/agent/model"
)

type Name string

const (
	Router Name = "router"

	PolicyExtract    Name = "policy_extract"
	PolicyAnalyze    Name = "policy_analyze"
	PolicySynthesize Name = "policy_synthesize"

	EligibilityExtract    Name = "eligibility_extract"
	EligibilityAnalyze    Name = "eligibility_analyze"
	EligibilitySynthesize Name = "eligibility_synthesize"

	BenefitsExtract    Name = "benefits_extract"
	BenefitsAnalyze    Name = "benefits_analyze"
	BenefitsSynthesize Name = "benefits_synthesize"

	AdvocacyExtract    Name = "advocacy_extract"
	AdvocacyAnalyze    Name = "advocacy_analyze"
	AdvocacySynthesize Name = "advocacy_synthesize"

	ConversationRewrite Name = "conversation_rewrite"
	ConversationAnswer  Name = "conversation_answer"
)

// Stage returns the prompt for a pipeline scope and stage, e.g.
// Stage("policy", "analyze").
func Stage(scope, stage string) Name {
	return Name(scope + "_" + stage)
}

//go:embed template/*.tmpl
var templates embed.FS

var (
	loadOnce sync.Once
	loaded   map[Name]string
	loadErr  error
)

func load() (map[Name]string, error) {
	loadOnce.Do(func() {
		entries, err := templates.ReadDir("template")
		if err != nil {
			loadErr = fmt.Errorf("read templates: %w", err)
			return
		}
		loaded = make(map[Name]string, len(entries))
		for _, e := range entries {
			b, err := templates.ReadFile("template/" + e.Name())
			if err != nil {
				loadErr = fmt.Errorf("read template %s: %w", e.Name(), err)
				return
			}
			name := e.Name()[:len(e.Name())-len(".tmpl")]
			loaded[Name(name)] = string(b)
		}
	})
	return loaded, loadErr
}

// Vars are template inputs. Language fills LanguageName when it is unset.
type Vars map[string]any

// Render formats the named system prompt with vars.
func Render(ctx context.Context, name Name, vars Vars) (string, error) {
	all, err := load()
	if err != nil {
		return "", err
	}
	text, ok := all[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}

	v := map[string]any{
		"Language":     model.DefaultLanguage,
		"LanguageName": model.LanguageName(model.DefaultLanguage),
	}
	for k, val := range vars {
		v[k] = val
	}
	if _, set := vars["LanguageName"]; !set {
		if lang, ok := v["Language"].(string); ok {
			v["LanguageName"] = model.LanguageName(lang)
		}
	}

	tpl := prompt.FromMessages(schema.GoTemplate, schema.SystemMessage(text))
	msgs, err := tpl.Format(ctx, v)
	if err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("render prompt %s: empty result", name)
	}
	return msgs[0].Content, nil
}
