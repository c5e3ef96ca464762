package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/witness-statement/internal/core/domain"
)

// BindStatement maps a submission and its normalized fields onto template placeholders.
// Optional signatory fields are always bound, empty when absent.
func BindStatement(record domain.SubmissionRecord, normalized NormalizedSubmission) *domain.TemplateBinding {
	binding := domain.NewTemplateBinding()

	binding.Scalars[domain.FieldMatter] = record.Matter
	binding.Scalars[domain.FieldLocation] = record.Location
	binding.Scalars[domain.FieldDate] = record.Date
	binding.Scalars[domain.FieldName] = record.Name
	binding.Scalars[domain.FieldAge] = record.Age.String()
	binding.Scalars[domain.FieldPoliceName] = record.PoliceName
	binding.Scalars[domain.FieldPoliceRego] = record.PoliceRego

	narrative := normalized.Narrative
	if narrative == nil {
		narrative = []domain.NarrativeItem{}
	}
	binding.Sequences[domain.FieldNarrative] = narrative

	binding.Images[domain.FieldPoliceSignature] = normalized.PoliceSignature
	binding.Images[domain.FieldWitnessSignature] = normalized.WitnessSignature

	return binding
}

// VerifyBinding checks that every placeholder the template declares has a bound value
// of the right shape.
func VerifyBinding(decl domain.TemplateDeclaration, binding *domain.TemplateBinding) error {
	var problems []string

	for _, name := range decl.Scalars {
		if _, ok := binding.Scalars[name]; !ok {
			problems = append(problems, fmt.Sprintf("placeholder %q has no bound value", name))
		}
	}
	for _, block := range decl.Blocks {
		if _, ok := binding.Sequences[block.Name]; !ok {
			// a block over a scalar is a condition
			if _, ok := binding.Scalars[block.Name]; !ok {
				problems = append(problems, fmt.Sprintf("repeating block %q has no bound sequence", block.Name))
				continue
			}
		}
		for _, tag := range block.Tags {
			if tag == domain.NarrativeItemField {
				continue
			}
			if _, ok := binding.Scalars[tag]; !ok {
				problems = append(problems, fmt.Sprintf("placeholder %q in block %q has no bound value", tag, block.Name))
			}
		}
	}
	for _, name := range decl.Images {
		if _, ok := binding.Images[name]; !ok {
			problems = append(problems, fmt.Sprintf("image placeholder %q has no bound image", name))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return domain.WrapError(domain.ErrBinding, "verify binding", fmt.Errorf("%s", strings.Join(problems, "; ")))
}
