package shell

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := map[string]struct {
		line     string
		expected []Command
		bg       bool
	}{
		"single": {
			line:     "ls",
			expected: []Command{{Name: "ls"}},
		},
		"args": {
			line:     "  ls -l  /tmp ",
			expected: []Command{{Name: "ls", Args: []string{"-l", "/tmp"}}},
		},
		"pipe": {
			line: "echo hello | wc -w",
			expected: []Command{
				{Name: "echo", Args: []string{"hello"}},
				{Name: "wc", Args: []string{"-w"}},
			},
		},
		"pipe-no-spaces": {
			line: "echo hi|cat|wc",
			expected: []Command{
				{Name: "echo", Args: []string{"hi"}},
				{Name: "cat"},
				{Name: "wc"},
			},
		},
		"single-quotes": {
			line:     `echo 'a  b' 'c|d'`,
			expected: []Command{{Name: "echo", Args: []string{"a  b", "c|d"}}},
		},
		"double-quotes": {
			line:     `echo "a > b" "say \"hi\""`,
			expected: []Command{{Name: "echo", Args: []string{"a > b", `say "hi"`}}},
		},
		"double-quote-escapes": {
			line:     `echo "\$x" "\\$" "a\b" '\$y' \$z`,
			expected: []Command{{Name: "echo", Args: []string{"$x", `\$`, `a\b`, `\$y`, "$z"}}},
		},
		"escaped-space": {
			line:     `cat my\ file`,
			expected: []Command{{Name: "cat", Args: []string{"my file"}}},
		},
		"joined-quotes": {
			line:     `echo a"b c"'d'`,
			expected: []Command{{Name: "echo", Args: []string{"ab cd"}}},
		},
		"empty-quoted-arg": {
			line:     `printf ''`,
			expected: []Command{{Name: "printf", Args: []string{""}}},
		},
		"redirects": {
			line:     "sort < in.txt > out.txt",
			expected: []Command{{Name: "sort", Stdin: "in.txt", Stdout: "out.txt"}},
		},
		"redirect-append-no-space": {
			line:     "echo hi >>log.txt",
			expected: []Command{{Name: "echo", Args: []string{"hi"}, Stdout: "log.txt", Append: true}},
		},
		"redirect-in-middle": {
			line: "cat < a | grep x > b",
			expected: []Command{
				{Name: "cat", Stdin: "a"},
				{Name: "grep", Args: []string{"x"}, Stdout: "b"},
			},
		},
		"background": {
			line:     "sleep 10 &",
			expected: []Command{{Name: "sleep", Args: []string{"10"}}},
			bg:       true,
		},
		"background-no-space": {
			line:     "sleep 10&",
			expected: []Command{{Name: "sleep", Args: []string{"10"}}},
			bg:       true,
		},
		"tilde": {
			line:     "ls ~ ~/src '~' a~",
			expected: []Command{{Name: "ls", Args: []string{"/home/user", "/home/user/src", "~", "a~"}}},
		},
		"comment": {
			line:     "echo hi # ignored | wc",
			expected: []Command{{Name: "echo", Args: []string{"hi"}}},
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			p, err := Parse(tc.line, "/home/user")
			require.NoError(t, err)

			assert.Equal(t, tc.expected, p.Commands)
			assert.Equal(t, tc.bg, p.Background)
		})
	}
}

func TestParse_source(t *testing.T) {
	p, err := Parse("  echo hello | wc -w & ", "")
	require.NoError(t, err)
	assert.Equal(t, "echo hello | wc -w", p.Source)
}

func TestParse_errors(t *testing.T) {
	cases := map[string]struct {
		line     string
		expected error
	}{
		"unterminated-single":   {`echo 'abc`, ErrUnterminatedQuote},
		"unterminated-double":   {`echo "abc`, ErrUnterminatedQuote},
		"unterminated-escaped":  {`echo "abc\"`, ErrUnterminatedQuote},
		"dangling-backslash":    {`echo abc\`, ErrUnterminatedQuote},
		"adjacent-pipes":        {"ls | | wc", ErrEmptyStage},
		"leading-pipe":          {"| wc", ErrEmptyStage},
		"trailing-pipe":         {"ls |", ErrEmptyStage},
		"only-pipe":             {"|", ErrEmptyStage},
		"only-redirect":         {"> out", ErrEmptyStage},
		"missing-target":        {"ls >", ErrMissingRedirectTarget},
		"missing-target-pipe":   {"ls > | wc", ErrMissingRedirectTarget},
		"empty-target":          {"ls > ''", ErrMissingRedirectTarget},
		"amp-in-middle":         {"sleep 1 & ls", ErrMisplacedBackground},
		"amp-before-pipe":       {"sleep 1 & | ls", ErrMisplacedBackground},
		"only-amp":              {"&", ErrEmptyCommand},
		"background-and-list":   {"true && sleep 1 &", ErrMisplacedBackground},
		"semi-then-amp":         {"ls ; &", ErrMisplacedBackground},
		"leading-and":           {"&& ls", ErrEmptyCommand},
		"trailing-or":           {"ls ||", ErrEmptyCommand},
		"double-semi":           {"ls ;; ls", ErrEmptyCommand},
		"list-is-not-pipeline":  {"ls ; ls", ErrNotPipeline},
		"blank-is-not-pipeline": {"   ", ErrEmptyStage},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			_, err := Parse(tc.line, "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.expected), "got %v, want %v", err, tc.expected)

			var parseErr *ParseError
			assert.True(t, errors.As(err, &parseErr))
		})
	}
}

func TestParseList(t *testing.T) {
	cases := map[string]struct {
		line     string
		names    []string
		ops      []Operator
		lastBg   bool
		rendered string
	}{
		"blank":    {line: "", rendered: ""},
		"comment":  {line: "# nothing", rendered: ""},
		"single":   {line: "ls", names: []string{"ls"}, ops: []Operator{OpNone}, rendered: "ls"},
		"and":      {line: "true && echo ok", names: []string{"true", "echo"}, ops: []Operator{OpAnd, OpNone}, rendered: "true && echo ok"},
		"or":       {line: "false||echo no", names: []string{"false", "echo"}, ops: []Operator{OpOr, OpNone}, rendered: "false || echo no"},
		"seq":      {line: "a; b ;c", names: []string{"a", "b", "c"}, ops: []Operator{OpSeq, OpSeq, OpNone}, rendered: "a ; b ; c"},
		"trailing": {line: "a;", names: []string{"a"}, ops: []Operator{OpNone}, rendered: "a"},
		"seq-bg":   {line: "cd /tmp; sleep 1 &", names: []string{"cd", "sleep"}, ops: []Operator{OpSeq, OpNone}, lastBg: true, rendered: "cd /tmp ; sleep 1 &"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			list, err := ParseList(tc.line, "")
			require.NoError(t, err)

			var names []string
			var ops []Operator
			for _, item := range list.Items {
				names = append(names, item.Pipeline.Commands[0].Name)
				ops = append(ops, item.Op)
			}
			assert.Equal(t, tc.names, names)
			assert.Equal(t, tc.ops, ops)
			assert.Equal(t, tc.rendered, list.Render())
			if n := len(list.Items); n > 0 {
				assert.Equal(t, tc.lastBg, list.Items[n-1].Pipeline.Background)
			}
		})
	}
}

func TestParse_renderIdempotent(t *testing.T) {
	lines := []string{
		"ls",
		"echo hello | wc -w",
		`echo 'a  b' "c\"d" e\ f`,
		"sort < 'in file' | uniq -c >> out.txt &",
		`echo "it's" '$HOME' '~' '#x' ''`,
		"grep -e 'a|b' file|wc -l",
		`printf '%s\n' "tab	here"`,
	}

	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			first, err := Parse(line, "/home/user")
			require.NoError(t, err)

			rendered := first.Render()
			second, err := Parse(rendered, "/home/user")
			require.NoError(t, err, "rendered: %s", rendered)

			assert.Equal(t, first.Commands, second.Commands, "rendered: %s", rendered)
			assert.Equal(t, first.Background, second.Background)
			assert.Equal(t, rendered, second.Render())
		})
	}
}

func ExampleQuote() {
	fmt.Println(Quote("plain"))
	fmt.Println(Quote("two words"))
	fmt.Println(Quote("it's"))
	fmt.Println(Quote(""))

	// Output: plain
	// 'two words'
	// 'it'\''s'
	// ''
}
