package functions

func arg(name, typ string, def interface{}) ArgumentDescriptor {
	return ArgumentDescriptor{Name: name, Type: typ, Default: def, Required: def == nil}
}

// optional declares an argument whose default is None
func optional(name, typ string) ArgumentDescriptor {
	return ArgumentDescriptor{Name: name, Type: typ}
}

// Catalog returns the transcript-analysis functions known to the backend,
// described the way GET /functions reports them. The mock backend serves it
// and tests use it as a realistic registry.
func Catalog() Registry {
	return Registry{
		"binary_classification": {
			Args: []ArgumentDescriptor{
				arg("questions", "list[dict]", nil),
				arg("max_workers", "", float64(5)),
			},
			Doc: "Runs one yes/no classifier per question and adds a label and explanation column for each.",
		},
		"categorical_classification": {
			Args: []ArgumentDescriptor{
				arg("context_prompt", "str", nil),
				arg("classifications", "typing.List[str]", []interface{}{}),
				arg("input_data", "str", "call_text"),
				arg("explanation_col", "str", "categorical_explanation"),
				arg("label_col", "str", "categorical_label"),
				arg("max_workers", "int", float64(8)),
				arg("id_column", "str", "call_id"),
			},
			Doc: "Classify call transcripts into one of the given categories.",
		},
		"category_extractor": {
			Args: []ArgumentDescriptor{
				arg("transcript_column", "str", nil),
				arg("context_prompt", "str", nil),
				arg("target_column", "str", "category_list"),
				arg("max_workers", "int", float64(8)),
			},
			Doc: "Extracts the list of category names found in each transcript.",
		},
		"comparison": {
			Args: []ArgumentDescriptor{
				arg("grouping_column", "str", nil),
				arg("context_prompt", "str", nil),
				arg("id_column", "str", "call_id"),
				arg("text_column", "str", "call_text"),
			},
			Doc: "Compares the concatenated texts of each group.",
		},
		"mece_theme_analysis": {
			Args: []ArgumentDescriptor{
				arg("transcript_column", "str", nil),
				arg("context_prompt", "str", nil),
				optional("id_column", "str"),
				arg("target_column", "str", "Theme_Analysis"),
				arg("themes_per_transcript", "typing.List[int]", []interface{}{float64(1)}),
				arg("max_workers", "int", float64(4)),
			},
			Doc: "Mutually exclusive, collectively exhaustive theme analysis per transcript.",
		},
		"open_classification": {
			Args: []ArgumentDescriptor{
				arg("context_prompt", "str", nil),
				arg("input_data", "", "call_text"),
				arg("response_col", "", "open_response"),
				arg("max_workers", "", float64(8)),
			},
			Doc: "Runs an open-ended question across the dataframe.",
		},
		"summarizer": {
			Args: []ArgumentDescriptor{
				arg("target_col", "str", nil),
				arg("group_by_col", "str", nil),
				arg("context_prompt", "str", nil),
				arg("max_workers", "int", float64(4)),
			},
			Doc: "Summarizes target_col for each unique value of group_by_col.",
		},
		"token_based_splitter": {
			Args: []ArgumentDescriptor{
				arg("target_col", "str", nil),
				arg("max_tokens", "int", float64(8000)),
				arg("buffer_size", "int", float64(100)),
				arg("model", "str", "gpt-5-mini"),
				optional("within_group_col", "str"),
				arg("new_col", "str", "split_col"),
			},
			Doc: "Splits text into token-size-based chunks, optionally within each group.",
		},
		"unique_value_splitter": {
			Args: []ArgumentDescriptor{
				arg("splitter_column", "str", nil),
			},
			Doc: "Maps each unique value of a column to an integer group index.",
		},
		"unsupervised_grouping": {
			Args: []ArgumentDescriptor{
				arg("input_column", "str", nil),
				arg("context_prompt", "str", nil),
				optional("id_column", "typing.Optional[str]"),
				arg("target_column", "str", "Group_Mapping"),
			},
			Doc: "Groups text responses into two to five categories.",
		},
		"filter": {
			Args: []ArgumentDescriptor{
				arg("target_col", "str", nil),
				arg("filter_values", "typing.List[str]", nil),
			},
			Doc: "Keeps rows whose target_col matches one of filter_values.",
		},
	}
}
