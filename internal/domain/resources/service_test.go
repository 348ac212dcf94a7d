package resources

import (
	"context"
	"testing"

	"github.com/ifeis/server/internal/domain/errs"
	"github.com/stretchr/testify/require"
)

type stubRepository struct {
	Repository
	contacts    []Contact
	stays       []Accommodation
	attachments map[string]Attachment
}

func (r *stubRepository) CreateContact(_ context.Context, c Contact) (*Contact, error) {
	r.contacts = append(r.contacts, c)
	return &c, nil
}

func (r *stubRepository) UpdateContact(_ context.Context, c Contact) (*Contact, error) {
	for i, existing := range r.contacts {
		if existing.ID == c.ID && existing.FeisID == c.FeisID {
			r.contacts[i] = c
			return &c, nil
		}
	}
	return nil, ErrContactNotFound
}

func (r *stubRepository) CreateAccommodation(_ context.Context, a Accommodation) (*Accommodation, error) {
	r.stays = append(r.stays, a)
	return &a, nil
}

func (r *stubRepository) CreateAttachment(_ context.Context, a Attachment) (*Attachment, error) {
	if r.attachments == nil {
		r.attachments = map[string]Attachment{}
	}
	r.attachments[a.ID] = a
	return &a, nil
}

func (r *stubRepository) RenameAttachment(_ context.Context, feisID, id, name string) (*Attachment, error) {
	a, ok := r.attachments[id]
	if !ok || a.FeisID != feisID {
		return nil, ErrAttachmentNotFound
	}
	a.Name = name
	r.attachments[id] = a
	return &a, nil
}

func TestContacts(t *testing.T) {
	repo := &stubRepository{}
	svc := NewService(repo)
	ctx := context.Background()

	c, err := svc.CreateContact(ctx, "feis", ContactInput{Name: " <i>Siobhan</i> Kelly ", Role: "Secretary", Email: "sk@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, c.ID)
	require.Equal(t, "feis", c.FeisID)
	require.Equal(t, "Siobhan Kelly", c.Name)

	updated, err := svc.UpdateContact(ctx, "feis", c.ID, ContactInput{Name: "Siobhan Kelly", Role: "Chair"})
	require.NoError(t, err)
	require.Equal(t, "Chair", updated.Role)

	_, err = svc.UpdateContact(ctx, "other-feis", c.ID, ContactInput{Name: "X"})
	require.ErrorIs(t, err, errs.ErrNotFound)

	_, err = svc.CreateContact(ctx, "feis", ContactInput{Name: "No Email", Email: "nope"})
	require.ErrorIs(t, err, errs.ErrInvalid)
}

func TestAccommodations_ValidatesURL(t *testing.T) {
	repo := &stubRepository{}
	svc := NewService(repo)

	a, err := svc.CreateAccommodation(context.Background(), "feis", AccommodationInput{Name: "Harbour Hotel", URL: "https://harbour.example.com", Rate: "$129/night"})
	require.NoError(t, err)
	require.Equal(t, "https://harbour.example.com", a.URL)

	for _, bad := range []string{"not a url", "javascript:alert(1)", "ftp://files.example.com/x"} {
		_, err = svc.CreateAccommodation(context.Background(), "feis", AccommodationInput{Name: "Bad", URL: bad})
		require.ErrorIs(t, err, errs.ErrInvalid, bad)
		require.Equal(t, map[string]string{"url": "must be a URL"}, errs.Fields(err))
	}
	require.Len(t, repo.stays, 1)
}

func TestAttachments_Rename(t *testing.T) {
	repo := &stubRepository{}
	svc := NewService(repo)
	ctx := context.Background()

	a, err := svc.CreateAttachment(ctx, "feis", AttachmentInput{Name: "Syllabus", URL: "https://files.example.com/syllabus.pdf"})
	require.NoError(t, err)

	renamed, err := svc.RenameAttachment(ctx, "feis", a.ID, AttachmentRename{Name: "Syllabus 2026"})
	require.NoError(t, err)
	require.Equal(t, "Syllabus 2026", renamed.Name)
	require.Equal(t, a.URL, renamed.URL)

	_, err = svc.RenameAttachment(ctx, "feis", a.ID, AttachmentRename{})
	require.ErrorIs(t, err, errs.ErrInvalid)

	_, err = svc.CreateAttachment(ctx, "feis", AttachmentInput{Name: "Missing URL"})
	require.ErrorIs(t, err, errs.ErrInvalid)
}
