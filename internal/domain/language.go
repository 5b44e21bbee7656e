package domain

const DefaultLanguage = "javascript"

const templateHeader = "// Welcome to Code Collaboration Room!\n// Start coding when both developers join.\n\n"

var templates = map[string]string{
	"javascript": templateHeader + "console.log(\"Hello, World!\");",
	"typescript": templateHeader + "const greeting: string = \"Hello, World!\";\nconsole.log(greeting);",
	"python":     "# Welcome to Code Collaboration Room!\n# Start coding when both developers join.\n\nprint(\"Hello, World!\")",
	"java":       templateHeader + "public class Main {\n    public static void main(String[] args) {\n        System.out.println(\"Hello, World!\");\n    }\n}",
	"cpp":        templateHeader + "#include <iostream>\n\nint main() {\n    std::cout << \"Hello, World!\" << std::endl;\n    return 0;\n}",
	"csharp":     templateHeader + "using System;\n\nclass Program {\n    static void Main() {\n        Console.WriteLine(\"Hello, World!\");\n    }\n}",
	"go":         templateHeader + "package main\n\nimport \"fmt\"\n\nfunc main() {\n    fmt.Println(\"Hello, World!\")\n}",
	"rust":       templateHeader + "fn main() {\n    println!(\"Hello, World!\");\n}",
}

// Template returns the starter buffer for a language, falling back to the
// javascript one for tags we have no template for.
func Template(language string) string {
	if t, ok := templates[language]; ok {
		return t
	}
	return templates[DefaultLanguage]
}

func KnownLanguage(language string) bool {
	_, ok := templates[language]
	return ok
}
