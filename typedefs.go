package fastgrep

// builtinTypeDef is the declarative form of a default type registration,
// expanded into typeFilters by TypeManager.registerBuiltin.
//
// This default table mirrors original_source/src/TypeManager.cpp's
// constructor, which registers a comparable set of defaults before any
// --type flag is parsed.
type builtinTypeDef struct {
	name       string
	isNames    []string
	extensions []string
	globs      []string
}

var builtinTypeDefs = []builtinTypeDef{
	{name: "cc", extensions: []string{"c", "h"}},
	{name: "cpp", extensions: []string{"cpp", "cxx", "cc", "hpp", "hxx", "hh", "h++", "c++"}},
	{name: "go", extensions: []string{"go"}},
	{name: "python", extensions: []string{"py", "pyi"}},
	{name: "rust", extensions: []string{"rs"}},
	{name: "java", extensions: []string{"java"}},
	{name: "js", extensions: []string{"js", "mjs", "cjs", "jsx"}},
	{name: "ts", extensions: []string{"ts", "tsx"}},
	{name: "ruby", extensions: []string{"rb"}, isNames: []string{"Rakefile", "Gemfile"}},
	{name: "php", extensions: []string{"php", "phtml"}},
	{name: "shell", extensions: []string{"sh", "bash", "zsh"}},
	{name: "perl", extensions: []string{"pl", "pm"}},
	{name: "markdown", extensions: []string{"md", "markdown"}},
	{name: "yaml", extensions: []string{"yaml", "yml"}},
	{name: "json", extensions: []string{"json"}},
	{name: "toml", extensions: []string{"toml"}},
	{name: "make", isNames: []string{"Makefile", "makefile", "GNUmakefile"}, extensions: []string{"mk"}},
	{name: "cmake", isNames: []string{"CMakeLists.txt"}, extensions: []string{"cmake"}},
	{name: "autoconf", extensions: []string{"ac", "m4"}, isNames: []string{"configure.ac"}},
	{name: "elisp", extensions: []string{"el"}},
	{name: "html", extensions: []string{"html", "htm"}},
	{name: "css", extensions: []string{"css", "scss", "sass"}},
	{name: "sql", extensions: []string{"sql"}},
	{name: "proto", extensions: []string{"proto"}},
}
