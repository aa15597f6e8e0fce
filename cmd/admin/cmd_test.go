package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtualboard/internal/account"
	"virtualboard/internal/app"
	"virtualboard/internal/apperr"
	"virtualboard/internal/cleanup"
	"virtualboard/internal/config"
	"virtualboard/internal/queue"
	"virtualboard/internal/store/memstore"
)

type harness struct {
	cli    *commandLine
	accts  *memstore.Accounts
	q      *queue.InMemory
	parked *queue.InMemory
}

func setup(t *testing.T) *harness {
	t.Helper()
	mem := memstore.New()
	h := &harness{
		accts:  mem.Accounts(),
		q:      queue.NewInMemory(16),
		parked: queue.NewInMemory(16),
	}
	h.cli = &commandLine{
		cfg: config.App{StoreBackend: "memory"},
		log: zerolog.Nop(),
		openStore: func(context.Context) (*app.Repos, error) {
			return &app.Repos{
				Accounts: h.accts, Classrooms: mem.Classrooms(), Lectures: mem.Lectures(), Recordings: mem.Recordings(),
				Close: func() error { return nil },
			}, nil
		},
		queues: func() (queue.Queue, cleanup.ParkingLot, func(), error) {
			return h.q, h.parked, func() {}, nil
		},
	}
	return h
}

func (h *harness) run(stdin string, args ...string) (string, error) {
	root := h.cli.root()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrate(t *testing.T) {
	h := setup(t)
	out, err := h.run("", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "memory store is up to date")

	h.cli.openStore = func(context.Context) (*app.Repos, error) { return nil, errors.New("dial tcp: refused") }
	_, err = h.run("", "migrate")
	assert.EqualError(t, err, "dial tcp: refused")
}

func TestAddTeacher(t *testing.T) {
	h := setup(t)

	tests := []struct {
		name     string
		stdin    string
		args     []string
		wantOut  string
		wantKind apperr.Kind
		wantErr  string
	}{
		{
			name:    "created",
			stdin:   "secret123\n",
			args:    []string{"add-teacher", "--name", "Ada", "--email", "Ada@School.edu", "--subject", "math", "--subject", "physics", "--class", "10A"},
			wantOut: "teacher ada@school.edu created",
		},
		{
			name:     "duplicate email",
			stdin:    "secret123\n",
			args:     []string{"add-teacher", "--name", "Ada", "--email", "ada@school.edu"},
			wantKind: apperr.Conflict,
		},
		{
			name:    "missing flag",
			stdin:   "secret123\n",
			args:    []string{"add-teacher", "--email", "x@school.edu"},
			wantErr: `required flag(s) "name" not set`,
		},
		{
			name:    "empty password",
			stdin:   "\n",
			args:    []string{"add-teacher", "--name", "Bo", "--email", "bo@school.edu"},
			wantErr: errEmptyPassword.Error(),
		},
		{
			name:     "short password",
			stdin:    "abc",
			args:     []string{"add-teacher", "--name", "Bo", "--email", "bo@school.edu"},
			wantKind: apperr.Invalid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.run(tt.stdin, tt.args...)
			switch {
			case tt.wantErr != "":
				assert.EqualError(t, err, tt.wantErr)
			case tt.wantKind != 0:
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, apperr.KindOf(err))
			default:
				require.NoError(t, err)
				assert.Contains(t, out, tt.wantOut)
			}
		})
	}

	got, err := h.accts.TeacherByEmail(context.Background(), "ada@school.edu")
	require.NoError(t, err)
	assert.Equal(t, []string{"math", "physics"}, got.Subjects)
	assert.Equal(t, []string{"10A"}, got.Classes)
}

func TestAddStudentPromptsOnTerminal(t *testing.T) {
	h := setup(t)

	tty, err := os.Create(filepath.Join(t.TempDir(), "tty"))
	require.NoError(t, err)
	defer tty.Close()

	origRead, origTerm := readPasswordFunc, isTerminalFunc
	t.Cleanup(func() { readPasswordFunc, isTerminalFunc = origRead, origTerm })
	isTerminalFunc = func(int) bool { return true }
	readPasswordFunc = func(int) ([]byte, error) { return []byte("hunter22"), nil }

	root := h.cli.root()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(tty)
	root.SetArgs([]string{"add-student", "--email", "kid@school.edu"})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "Enter password:")
	assert.Contains(t, out.String(), "student kid@school.edu created")

	svc := account.NewService(h.accts, nil, nil, account.Options{}, zerolog.Nop())
	who, err := svc.Authenticate(context.Background(), account.RoleStudent, "kid@school.edu", "hunter22")
	require.NoError(t, err)
	assert.True(t, who.IsStudent())
}

func TestRequeue(t *testing.T) {
	h := setup(t)
	for i := 0; i < 3; i++ {
		msg, err := queue.NewMessage(cleanup.MessageType, cleanup.Job{URLs: []string{"mem://x"}, Reason: "test", Attempts: 5})
		require.NoError(t, err)
		require.NoError(t, h.parked.Publish(context.Background(), msg))
	}

	out, err := h.run("", "requeue")
	require.NoError(t, err)
	assert.Contains(t, out, "requeued 3 job(s)")
	assert.Equal(t, 0, h.parked.Len())
	require.Equal(t, 3, h.q.Len())

	msgs, err := h.q.Drain(context.Background(), 1)
	require.NoError(t, err)
	var job cleanup.Job
	require.NoError(t, msgs[0].Decode(&job))
	assert.Zero(t, job.Attempts)
}
