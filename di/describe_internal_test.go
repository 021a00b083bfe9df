package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExportedFunc(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		want bool
	}{
		{name: "app.NewService", want: true},
		{name: "app.newService", want: false},
		{name: "app.NewService[...]", want: true},
		{name: "app.TestFactory.func1", want: true},
		{name: "app.TestFactory.func2.1", want: true},
		{name: "app.TestFactory.func2.1.3", want: true},
		{name: "app.init.func1", want: true},
		{name: "app.(*Repo).newThing", want: false},
		{name: "app.Build.1", want: true},
		{name: "app.build.1", want: false},
		{name: "app.funcky", want: false},
		{name: "func", want: true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, exportedFunc(tc.name), tc.name)
	}
}

func TestFuncName_NestedLiteral(t *testing.T) {
	t.Parallel()

	outer := func() func() int {
		return func() int { return 1 }
	}
	m, _, err := newMember(outer(), nil)
	assert.NoError(t, err)
	assert.Contains(t, m.Name, "TestFuncName_NestedLiteral.func1")
	assert.True(t, m.Exported, m.Name)
}
