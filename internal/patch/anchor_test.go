package patch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertionPoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		lines   []string
		want    int
		wantErr bool
	}{
		{
			name: "guard block preferred over preamble",
			lines: []string{
				"#include <stdio.h>",
				"#include <math.h>",
				"",
				"#if defined(__ARM_NEON)",
				"#include <arm_neon.h>",
				"#endif",
				"int main(void) { return 0; }",
			},
			want: 4,
		},
		{
			name: "after last preamble include",
			lines: []string{
				"// header comment",
				"#include <stdio.h>",
				"#include <stdlib.h>",
				"",
				"static int x;",
			},
			want: 3,
		},
		{
			name: "directives interleaved with includes",
			lines: []string{
				"#define _GNU_SOURCE",
				"#include <stdio.h>",
				"#pragma GCC diagnostic ignored \"-Wunused\"",
				"#include <string.h>",
				"",
				"void f(void);",
			},
			want: 4,
		},
		{
			name: "block comment before includes",
			lines: []string{
				"/*",
				" * license text",
				" */",
				"#include <stdio.h>",
				"int y;",
			},
			want: 4,
		},
		{
			name: "include after code does not extend the preamble",
			lines: []string{
				"#include <stdio.h>",
				"int x;",
				"#include <late.h>",
				"int y;",
			},
			want: 1,
		},
		{
			name: "indented guard still matches",
			lines: []string{
				"#include <stdio.h>",
				"  #if defined(__ARM_NEON)",
				"#include <arm_neon.h>",
				"#endif",
			},
			want: 2,
		},
		{
			name:    "no includes and no guard",
			lines:   []string{"int main(void) {", "    return 0;", "}"},
			wantErr: true,
		},
		{
			name:    "file ending at the preamble has no interior point",
			lines:   []string{"#include <stdio.h>"},
			wantErr: true,
		},
		{
			name:    "empty file",
			lines:   []string{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := insertionPoint(tt.lines)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Greater(t, got, 0, "must never insert at the literal start")
			require.Less(t, got, len(tt.lines), "must never insert at the literal end")
		})
	}
}
