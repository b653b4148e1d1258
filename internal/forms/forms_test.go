package forms

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers map[string]bool

func (f fakeUsers) EmailExists(_ context.Context, email string) (bool, error) {
	return f[email], nil
}

type fakeBills struct {
	ids []uint
	err error
}

func (f fakeBills) ExistingBillIDs(_ context.Context, ids []uint) ([]uint, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []uint
	for _, id := range ids {
		for _, have := range f.ids {
			if id == have {
				out = append(out, id)
			}
		}
	}
	return out, nil
}

func postContext(values url.Values) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.Request = req
	return c
}

func TestBindSignUp(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
		taken  fakeUsers
		want   Errors
	}{
		{
			name:   "valid",
			values: url.Values{"username": {"ann"}, "email": {"ann@x.io"}, "password1": {"pw"}, "password2": {"pw"}},
			want:   Errors{},
		},
		{
			name:   "blank fields",
			values: url.Values{"username": {"  "}, "email": {""}, "password1": {"pw"}, "password2": {"pw"}},
			want:   Errors{"username": {MsgRequired}, "email": {MsgRequired}},
		},
		{
			name:   "password mismatch",
			values: url.Values{"username": {"ann"}, "email": {"ann@x.io"}, "password1": {"pw"}, "password2": {"other"}},
			want:   Errors{"password2": {"Field must be equal to password1."}},
		},
		{
			name:   "email taken",
			values: url.Values{"username": {"ann"}, "email": {"ann@x.io"}, "password1": {"pw"}, "password2": {"pw"}},
			taken:  fakeUsers{"ann@x.io": true},
			want:   Errors{"email": {MsgEmailTaken}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, errs, err := BindSignUp(postContext(tt.values), tt.taken)
			require.NoError(t, err)
			assert.Equal(t, tt.want, errs)
			assert.Equal(t, tt.values.Get("username"), f.Username)
		})
	}
}

func TestBindSignIn(t *testing.T) {
	f, errs, err := BindSignIn(postContext(url.Values{"email": {"a@x.io"}, "password": {"pw"}}))
	require.NoError(t, err)
	assert.False(t, errs.Any())
	assert.Equal(t, "a@x.io", f.Email)

	_, errs, err = BindSignIn(postContext(url.Values{"email": {"a@x.io"}}))
	require.NoError(t, err)
	assert.Equal(t, []string{MsgRequired}, errs.Get("password"))
}

func TestBindNewBill(t *testing.T) {
	f, errs, err := BindNewBill(postContext(url.Values{"amount": {"12.50"}, "description": {"lunch"}}))
	require.NoError(t, err)
	assert.False(t, errs.Any())
	assert.Equal(t, "12.50", f.Amount)

	_, errs, err = BindNewBill(postContext(url.Values{"amount": {""}, "description": {"lunch"}}))
	require.NoError(t, err)
	assert.Equal(t, Errors{"amount": {MsgRequired}}, errs)
}

func TestBindNewGroup(t *testing.T) {
	store := fakeBills{ids: []uint{1, 3}}

	t.Run("no bills", func(t *testing.T) {
		f, errs, err := BindNewGroup(postContext(url.Values{"group_id": {"G2"}, "description": {"trip"}}), store)
		require.NoError(t, err)
		assert.False(t, errs.Any())
		assert.Empty(t, f.BillIDs)
	})

	t.Run("existing bills", func(t *testing.T) {
		f, errs, err := BindNewGroup(postContext(url.Values{"group_id": {"G2"}, "description": {"trip"}, "bills": {"3", "1"}}), store)
		require.NoError(t, err)
		assert.False(t, errs.Any())
		assert.Equal(t, []uint{3, 1}, f.BillIDs)
		assert.True(t, f.Selected(3))
		assert.False(t, f.Selected(2))
	})

	t.Run("unknown bill", func(t *testing.T) {
		f, errs, err := BindNewGroup(postContext(url.Values{"group_id": {"G2"}, "description": {"trip"}, "bills": {"3", "9"}}), store)
		require.NoError(t, err)
		assert.Equal(t, Errors{"bills": {MsgInvalidChoice}}, errs)
		assert.Nil(t, f.BillIDs)
	})

	t.Run("not a number", func(t *testing.T) {
		_, errs, err := BindNewGroup(postContext(url.Values{"group_id": {"G2"}, "description": {"trip"}, "bills": {"abc"}}), store)
		require.NoError(t, err)
		assert.Equal(t, []string{MsgInvalidChoice}, errs.Get("bills"))
	})

	t.Run("missing fields", func(t *testing.T) {
		_, errs, err := BindNewGroup(postContext(url.Values{"bills": {"1"}}), store)
		require.NoError(t, err)
		assert.Equal(t, []string{MsgRequired}, errs.Get("group_id"))
		assert.Equal(t, []string{MsgRequired}, errs.Get("description"))
	})

	t.Run("numeric group id", func(t *testing.T) {
		_, errs, err := BindNewGroup(postContext(url.Values{"group_id": {"12"}, "description": {"trip"}}), store)
		require.NoError(t, err)
		assert.Equal(t, Errors{"group_id": {MsgNumericGroup}}, errs)
	})

	t.Run("storage failure", func(t *testing.T) {
		boom := errors.New("boom")
		_, _, err := BindNewGroup(postContext(url.Values{"group_id": {"G2"}, "description": {"trip"}, "bills": {"1"}}), fakeBills{err: boom})
		assert.ErrorIs(t, err, boom)
	})
}

func TestNumericGroupID(t *testing.T) {
	for id, want := range map[string]bool{
		"1":    true,
		" 42 ": true,
		"G1":   false,
		"1a":   false,
		"-1":   false,
		"":     false,
	} {
		assert.Equal(t, want, NumericGroupID(id), "group id %q", id)
	}
}
