package testutil

import (
	"pipeline-builder/internal/client"
	"pipeline-builder/internal/functions"
	"pipeline-builder/internal/pipeline"
)

// CallsCSV is a small dataset with one long text column
const CallsCSV = "caller,transcript,duration\n" +
	"alice,please cancel my plan,42\n" +
	"bob,what is my balance,18\n"

// TestFixtures provides common test data
type TestFixtures struct {
	Registry functions.Registry
	Pipeline pipeline.Pipeline
	Datasets []client.Dataset
}

// NewTestFixtures creates a filter then summarizer pipeline against the
// built-in catalog
func NewTestFixtures() *TestFixtures {
	registry := functions.Catalog()

	filter := pipeline.NewStep(0)
	filter.Function = "filter"
	filter.Args = functions.BuildTemplate("filter", registry)
	filter.Args["target_col"] = "caller"
	filter.Args["filter_values"] = []interface{}{"alice"}

	summary := pipeline.NewStep(1)
	summary.Function = "summarizer"
	summary.Args = functions.BuildTemplate("summarizer", registry)
	summary.InputDFName = filter.OutputDFName

	return &TestFixtures{
		Registry: registry,
		Pipeline: pipeline.Pipeline{
			Name:  "Cancellations",
			Steps: []pipeline.Step{filter, summary},
		},
		Datasets: []client.Dataset{
			{ID: "ds_a", OriginalFilename: "a.csv", NumRows: 2},
			{ID: "ds_b", OriginalFilename: "b.csv", NumRows: 5},
			{ID: "ds_c", OriginalFilename: "c.csv", NumRows: 1},
		},
	}
}
