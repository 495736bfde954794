package editormru

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/puku-sh/editormru/mru"
	"github.com/puku-sh/editormru/workbench"
)

// StateKey is default key of persisted most recently used editors.
const StateKey = "editors.mru"

var ErrCorruptedState = errors.New("corrupted editors state")

// stateRecord points to editor by its position among serializable editors of group.
type stateRecord struct {
	GroupID workbench.GroupID `json:"groupId"`
	Index   int               `json:"index"`
}

func encodeState(records []stateRecord) (string, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return string(data), nil
}

// decodeState fails on any malformed input. No partial recovery.
func decodeState(raw string) (records []stateRecord, err error) {
	err = json.Unmarshal([]byte(raw), &records)
	if err != nil {
		return nil, errors.Wrap(ErrCorruptedState, err.Error())
	}
	return
}

// serialize returns records in most recently used order, least recent first.
// Editors of removed groups and not serializable editors are skipped.
func serialize(groups workbench.GroupProvider, serializers workbench.SerializerRegistry, ids []mru.Identity) (records []stateRecord, skipped int) {
	serializableOf := map[workbench.GroupID][]workbench.Editor{}
	records = make([]stateRecord, 0, len(ids))
	for _, id := range ids {
		serializable, ok := serializableOf[id.GroupID]
		if !ok {
			serializable = serializableEditors(groups, serializers, id.GroupID)
			serializableOf[id.GroupID] = serializable
		}
		index := indexOf(serializable, id.Editor)
		if index < 0 {
			skipped++
			continue
		}
		records = append(records, stateRecord{id.GroupID, index})
	}
	return
}

// deserialize builds store in records order. Records of missing groups and editors are skipped.
// Index is resolved among serializable editors, the same way serialize computes it.
func deserialize(groups workbench.GroupProvider, serializers workbench.SerializerRegistry, records []stateRecord) (store *mru.Store, skipped int) {
	store = mru.NewStore()
	editorsOf := map[workbench.GroupID][]workbench.Editor{}
	for _, rec := range records {
		editors, ok := editorsOf[rec.GroupID]
		if !ok {
			editors = serializableEditors(groups, serializers, rec.GroupID)
			editorsOf[rec.GroupID] = editors
		}
		if rec.Index < 0 || rec.Index >= len(editors) {
			skipped++
			continue
		}
		// Records order is recency order, so every editor is added as most recent.
		store.Add(rec.GroupID, editors[rec.Index], true, true)
	}
	return
}

// seed builds store from current groups state, when there is no persisted one.
// Groups and their editors are added from least to most recently active, every as
// most recent, so most recent editor of most recent group ends up last.
func seed(groups workbench.GroupProvider) *mru.Store {
	store := mru.NewStore()
	recentGroups := groups.Groups(workbench.GroupsByMostRecentlyActive)
	for gi := len(recentGroups) - 1; gi >= 0; gi-- {
		g := recentGroups[gi]
		recent := g.Editors(workbench.EditorsByMostRecentlyActive)
		for ei := len(recent) - 1; ei >= 0; ei-- {
			store.Add(g.ID(), recent[ei], true, true)
		}
	}
	return store
}

// serializableEditors returns serializable editors of group in sequential order.
// Nil for missing group.
func serializableEditors(groups workbench.GroupProvider, serializers workbench.SerializerRegistry, id workbench.GroupID) (res []workbench.Editor) {
	g := groups.Group(id)
	if g == nil {
		return nil
	}
	for _, e := range g.Editors(workbench.EditorsSequential) {
		if serializers.CanSerialize(e) {
			res = append(res, e)
		}
	}
	return
}

func indexOf(editors []workbench.Editor, e workbench.Editor) int {
	for i, x := range editors {
		if x == e {
			return i
		}
	}
	return -1
}
