package depfile_test

import (
	"fmt"

	"github.com/matzehuels/dep2j/pkg/depfile"
)

func ExampleParse() {
	data := []byte("main.o util.o: common.h \\\n  my\\ config.h\n# generated\n")

	rules, err := depfile.Parse("main.d", data)
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, r := range rules {
		fmt.Printf("%s <- %q\n", r.Target, r.Prerequisites)
	}
	// Output:
	// main.o <- ["common.h" "my config.h"]
	// util.o <- ["common.h" "my config.h"]
}

func ExampleParse_malformed() {
	_, err := depfile.Parse("broken.d", []byte("a.o: a.c\nb.o b.c\n"))
	fmt.Println(err)
	// Output:
	// MALFORMED_INPUT: broken.d:2 (offset 9): missing rule separator ':' after target
}

func ExampleLexer() {
	lex := depfile.NewLexer("x.d", []byte("x.o: x.c"))
	for {
		tok, err := lex.Next()
		if err != nil {
			break
		}
		fmt.Println(tok)
	}
	// Output:
	// TARGET_NAME("x.o")@1:0
	// RULE_SEPARATOR@1:3
	// PREREQUISITE_NAME("x.c")@1:5
	// END_OF_RULE@1:8
}
