package workbenchmocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/puku-sh/editormru/workbench"
)

// StateStore is mock of workbench.StateStore.
type StateStore struct {
	mock.Mock
}

var _ workbench.StateStore = (*StateStore)(nil)

func (_m *StateStore) Get(key string) (string, bool, error) {
	ret := _m.Called(key)
	return ret.String(0), ret.Bool(1), ret.Error(2)
}

func (_m *StateStore) Store(key, value string) error {
	ret := _m.Called(key, value)
	return ret.Error(0)
}

func (_m *StateStore) Remove(key string) error {
	ret := _m.Called(key)
	return ret.Error(0)
}

func (_m *StateStore) OnWillSaveState(f func()) workbench.Unsubscribe {
	ret := _m.Called(f)
	return unsubscribe(ret)
}
