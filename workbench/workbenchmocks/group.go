package workbenchmocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/puku-sh/editormru/workbench"
)

// Group is mock of workbench.Group.
type Group struct {
	mock.Mock
}

var _ workbench.Group = (*Group)(nil)

func (_m *Group) ID() workbench.GroupID {
	ret := _m.Called()
	return ret.Get(0).(workbench.GroupID)
}

func (_m *Group) Editors(order workbench.EditorOrder) []workbench.Editor {
	ret := _m.Called(order)
	r0, _ := ret.Get(0).([]workbench.Editor)
	return r0
}

func (_m *Group) ActiveEditor() workbench.Editor {
	ret := _m.Called()
	r0, _ := ret.Get(0).(workbench.Editor)
	return r0
}

func (_m *Group) IsSticky(e workbench.Editor) bool {
	ret := _m.Called(e)
	return ret.Bool(0)
}

func (_m *Group) CloseEditors(ctx context.Context, editors []workbench.Editor, opts workbench.CloseOptions) error {
	ret := _m.Called(ctx, editors, opts)
	return ret.Error(0)
}

func (_m *Group) OnDidOpenEditor(f func(workbench.Editor)) workbench.Unsubscribe {
	ret := _m.Called(f)
	return unsubscribe(ret)
}

func (_m *Group) OnDidCloseEditor(f func(workbench.Editor)) workbench.Unsubscribe {
	ret := _m.Called(f)
	return unsubscribe(ret)
}

func (_m *Group) OnDidActiveEditorChange(f func(workbench.Editor)) workbench.Unsubscribe {
	ret := _m.Called(f)
	return unsubscribe(ret)
}

func unsubscribe(ret mock.Arguments) workbench.Unsubscribe {
	if len(ret) == 0 {
		return func() {}
	}
	switch f := ret.Get(0).(type) {
	case workbench.Unsubscribe:
		return f
	case func():
		return f
	}
	return func() {}
}
