package memstore

import (
	"context"

	"virtualboard/internal/apperr"
	"virtualboard/internal/lecture"
	"virtualboard/internal/recording"
)

// Lectures implements lecture.Repository.
type Lectures struct{ s *Store }

var _ lecture.Repository = (*Lectures)(nil)

func lectureKey(l lecture.Lecture) (int64, string) { return l.CreatedAt.UnixNano(), l.ID }

func (r *Lectures) Create(_ context.Context, l lecture.Lecture) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.lectures[l.ID]; ok {
		return apperr.ErrDuplicate
	}
	r.s.lectures[l.ID] = cloneLecture(l)
	return nil
}

func (r *Lectures) Get(_ context.Context, id string) (lecture.Lecture, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l, ok := r.s.lectures[id]
	if !ok {
		return lecture.Lecture{}, apperr.ErrNotFound
	}
	return cloneLecture(l), nil
}

func (r *Lectures) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.lectures[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(r.s.lectures, id)
	return nil
}

func (r *Lectures) list(keep func(lecture.Lecture) bool) []lecture.Lecture {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := sorted(r.s.lectures, keep, lectureKey)
	for i := range out {
		out[i] = cloneLecture(out[i])
	}
	return out
}

func (r *Lectures) List(_ context.Context) ([]lecture.Lecture, error) {
	return r.list(nil), nil
}

func (r *Lectures) ListByClassroom(_ context.Context, classroomID string) ([]lecture.Lecture, error) {
	return r.list(func(l lecture.Lecture) bool { return l.ClassroomID == classroomID }), nil
}

func (r *Lectures) AppendMaterial(_ context.Context, id, url string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.lectures[id]
	if !ok {
		return apperr.ErrNotFound
	}
	l.Material = append(cloneStrings(l.Material), url)
	r.s.lectures[id] = l
	return nil
}

func (r *Lectures) RemoveMaterial(_ context.Context, id string, index int) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.lectures[id]
	if !ok {
		return "", apperr.ErrNotFound
	}
	if index < 0 || index >= len(l.Material) {
		return "", lecture.ErrMaterialIndex
	}
	removed := l.Material[index]
	material := make([]string, 0, len(l.Material)-1)
	material = append(material, l.Material[:index]...)
	l.Material = append(material, l.Material[index+1:]...)
	r.s.lectures[id] = l
	return removed, nil
}

func (r *Lectures) SetCanvas(_ context.Context, id, url string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.lectures[id]
	if !ok {
		return "", apperr.ErrNotFound
	}
	prev := l.Canvas
	l.Canvas = url
	r.s.lectures[id] = l
	return prev, nil
}

// Recordings implements recording.Repository.
type Recordings struct{ s *Store }

var _ recording.Repository = (*Recordings)(nil)

func recordingKey(r recording.Recording) (int64, string) { return r.CreatedAt.UnixNano(), r.ID }

func (r *Recordings) Create(_ context.Context, rec recording.Recording) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.recordings[rec.ID]; ok {
		return apperr.ErrDuplicate
	}
	r.s.recordings[rec.ID] = rec
	return nil
}

func (r *Recordings) Get(_ context.Context, id string) (recording.Recording, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.recordings[id]
	if !ok {
		return recording.Recording{}, apperr.ErrNotFound
	}
	return rec, nil
}

func (r *Recordings) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.recordings[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(r.s.recordings, id)
	return nil
}

func (r *Recordings) List(_ context.Context) ([]recording.Recording, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return sorted(r.s.recordings, nil, recordingKey), nil
}

func (r *Recordings) ListByLecture(_ context.Context, lectureID string) ([]recording.Recording, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return sorted(r.s.recordings, func(rec recording.Recording) bool { return rec.LectureID == lectureID }, recordingKey), nil
}
