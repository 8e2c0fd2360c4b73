package formatter

type RewrittenFormatter struct{}

func (f *RewrittenFormatter) ReportTemplate() string {
	return `{{header .Status .Name .MaxLineNumWidth .Filename .Line .Column -}}
{{snippet .SnippetLines .Line .MaxLineNumWidth .Padding -}}
{{stats .Padding .Gotos .Rounds .Moves .Flags .Temps -}}
{{complexity .Padding .ComplexityBefore .ComplexityAfter -}}
{{verdict .Padding .Verdict}}
`
}

type SkippedFormatter struct{}

func (f *SkippedFormatter) ReportTemplate() string {
	return `{{header .Status .Name .MaxLineNumWidth .Filename .Line .Column -}}
{{snippet .SnippetLines .Line .MaxLineNumWidth .Padding -}}
{{message .Padding .Detail}}
`
}

type FailedFormatter struct{}

func (f *FailedFormatter) ReportTemplate() string {
	return `{{header .Status .Name .MaxLineNumWidth .Filename .Line .Column -}}
{{snippet .SnippetLines .Line .MaxLineNumWidth .Padding -}}
{{message .Padding .Detail -}}
{{verdict .Padding .Verdict}}
`
}
