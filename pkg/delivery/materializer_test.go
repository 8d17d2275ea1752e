package delivery_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/cda-client/pkg/delivery"
)

type content interface {
	contentTypeID() string
}

type blogPost struct {
	Sys       delivery.Sys       `json:"sys"`
	Title     string             `json:"title" validate:"required"`
	Slug      string
	Views     int64              `json:"views"`
	Published time.Time          `json:"published"`
	Tags      []string           `json:"tags"`
	Author    *person            `json:"author"`
	Image     *delivery.Asset    `json:"image"`
	Body      *delivery.RichText `json:"body"`
	Related   []content          `json:"related"`
}

func (*blogPost) contentTypeID() string { return "blogPost" }

type person struct {
	Sys   delivery.Sys
	Name  string      `json:"name" validate:"required"`
	Posts []*blogPost `json:"posts"`
}

func (*person) contentTypeID() string { return "person" }

type postFields struct {
	Title string `json:"title" validate:"required"`
	Slug  string `json:"slug"`
}

const blogDocument = `{
  "skip": 0, "limit": 10, "total": 3,
  "items": [
    {"sys": {"id": "p1", "type": "Entry", "contentType": {"sys": {"type": "Link", "linkType": "ContentType", "id": "blogPost"}}},
     "fields": {
       "title": "First", "slug": "first", "views": 42, "published": "2024-03-01T10:00:00Z",
       "tags": ["go", "cms"],
       "author": {"sys": {"type": "Link", "linkType": "Entry", "id": "ada"}},
       "image": {"sys": {"type": "Link", "linkType": "Asset", "id": "cover"}},
       "related": [
         {"sys": {"type": "Link", "linkType": "Entry", "id": "p2"}},
         {"sys": {"type": "Link", "linkType": "Entry", "id": "landing"}},
         {"sys": {"type": "Link", "linkType": "Entry", "id": "ada"}}
       ],
       "body": {"nodeType": "document", "data": {}, "content": [
         {"nodeType": "paragraph", "data": {}, "content": [{"nodeType": "text", "value": "Hi", "marks": [], "data": {}}]},
         {"nodeType": "embedded-entry-block", "data": {"target": {"sys": {"type": "Link", "linkType": "Entry", "id": "ada"}}}, "content": []}
       ]}
     }},
    {"sys": {"id": "p2", "type": "Entry", "contentType": {"sys": {"type": "Link", "linkType": "ContentType", "id": "blogPost"}}},
     "fields": {"title": "Second", "author": {"sys": {"type": "Link", "linkType": "Entry", "id": "ada"}}}},
    {"sys": {"id": "landing", "type": "Entry", "contentType": {"sys": {"type": "Link", "linkType": "ContentType", "id": "page"}}},
     "fields": {"title": "Landing"}}
  ],
  "includes": {
    "Entry": [
      {"sys": {"id": "ada", "type": "Entry", "contentType": {"sys": {"type": "Link", "linkType": "ContentType", "id": "person"}}},
       "fields": {"name": "Ada", "posts": [{"sys": {"type": "Link", "linkType": "Entry", "id": "p1"}}, {"sys": {"type": "Link", "linkType": "Entry", "id": "p2"}}]}}
    ],
    "Asset": [
      {"sys": {"id": "cover", "type": "Asset"},
       "fields": {"title": "Cover", "file": {"url": "//images.example.com/cover.png", "fileName": "cover.png", "contentType": "image/png",
         "details": {"size": 2048, "image": {"width": 640, "height": 480}}}}}
    ]
  }
}`

func newBlogRegistry(t *testing.T) *delivery.ContentTypeRegistry {
	t.Helper()

	registry := delivery.NewContentTypeRegistry()
	require.NoError(t, delivery.Register[*blogPost](registry, "blogPost"))
	require.NoError(t, delivery.Register[*person](registry, "person"))

	return registry
}

func TestMaterialize_LiftedFields(t *testing.T) {
	t.Parallel()

	col, err := delivery.Decode[*blogPost]([]byte(blogDocument))
	require.NoError(t, err)

	assert.Equal(t, 10, col.Limit)
	assert.Equal(t, 3, col.Total)
	require.Len(t, col.Items, 3)

	first := col.Items[0]
	assert.Equal(t, "p1", first.Sys.ID)
	assert.Equal(t, "First", first.Title)
	assert.Equal(t, "first", first.Slug)
	assert.Equal(t, int64(42), first.Views)
	assert.True(t, first.Published.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, []string{"go", "cms"}, first.Tags)

	require.NotNil(t, first.Image)
	assert.Equal(t, "Cover", first.Image.Title)
	require.NotNil(t, first.Image.File)
	assert.Equal(t, "cover.png", first.Image.File.FileName)
	assert.Equal(t, int64(2048), first.Image.File.Details.Size)
	assert.Equal(t, 640, first.Image.File.Details.Image.Width)

	require.Len(t, col.IncludedAssets, 1)
	assert.Same(t, first.Image, col.IncludedAssets[0])
	require.Len(t, col.IncludedEntries, 1)
	assert.Equal(t, "ada", col.IncludedEntries[0].Sys.ID)
}

func TestMaterialize_SharedIdentityAndCycles(t *testing.T) {
	t.Parallel()

	col, err := delivery.Decode[*blogPost]([]byte(blogDocument))
	require.NoError(t, err)

	first, second := col.Items[0], col.Items[1]

	require.NotNil(t, first.Author)
	assert.Same(t, first.Author, second.Author)
	assert.Equal(t, "Ada", first.Author.Name)
	assert.Equal(t, "ada", first.Author.Sys.ID)

	require.Len(t, first.Author.Posts, 2)
	assert.Same(t, first, first.Author.Posts[0])
	assert.Same(t, second, first.Author.Posts[1])
}

func TestMaterialize_RichText(t *testing.T) {
	t.Parallel()

	col, err := delivery.Decode[*blogPost]([]byte(blogDocument))
	require.NoError(t, err)

	body := col.Items[0].Body
	require.NotNil(t, body)
	require.Len(t, body.Content, 2)

	paragraph, ok := body.Content[0].(*delivery.Paragraph)
	require.True(t, ok)
	assert.Equal(t, "Hi", paragraph.Content[0].(*delivery.Text).Value)

	embedded, ok := body.Content[1].(*delivery.EmbeddedEntryBlock)
	require.True(t, ok)
	require.NotNil(t, embedded.Target)
	assert.Equal(t, "Ada", embedded.Target.Field("name"))
}

func TestMaterialize_InterfaceTargets(t *testing.T) {
	t.Parallel()

	t.Run("registry selects types", func(t *testing.T) {
		t.Parallel()

		col, err := delivery.Decode[content]([]byte(blogDocument), delivery.WithContentTypeResolver(newBlogRegistry(t)))
		require.NoError(t, err)

		require.Len(t, col.Items, 2)
		require.Len(t, col.Unmapped, 1)
		assert.Equal(t, "landing", col.Unmapped[0].Sys.ID)

		first, ok := col.Items[0].(*blogPost)
		require.True(t, ok)

		require.Len(t, first.Related, 2)
		assert.Same(t, col.Items[1], first.Related[0])
		assert.Same(t, first.Author, first.Related[1])
	})

	t.Run("any falls back to entity", func(t *testing.T) {
		t.Parallel()

		col, err := delivery.Decode[any]([]byte(blogDocument), delivery.WithContentTypeResolver(newBlogRegistry(t)))
		require.NoError(t, err)

		require.Len(t, col.Items, 3)
		assert.IsType(t, &blogPost{}, col.Items[0])

		landing, ok := col.Items[2].(*delivery.Entity)
		require.True(t, ok)
		assert.Equal(t, "Landing", landing.Field("title"))
		assert.Empty(t, col.Unmapped)
	})

	t.Run("without resolver everything is unmapped", func(t *testing.T) {
		t.Parallel()

		col, err := delivery.Decode[content]([]byte(blogDocument))
		require.NoError(t, err)

		assert.Empty(t, col.Items)
		assert.Len(t, col.Unmapped, 3)
	})

	t.Run("resolver func", func(t *testing.T) {
		t.Parallel()

		resolver := delivery.ContentTypeResolverFunc(func(id string) (reflect.Type, bool) {
			if id == "person" {
				return reflect.TypeFor[*person](), true
			}

			return nil, false
		})

		ada, err := delivery.MaterializeEntity[content](entityFrom(t, "ada"), delivery.WithContentTypeResolver(resolver))
		require.NoError(t, err)
		assert.Equal(t, "person", ada.contentTypeID())
	})
}

func TestMaterialize_WholeNode(t *testing.T) {
	t.Parallel()

	col, err := delivery.Decode[*delivery.Entry[postFields]]([]byte(blogDocument))
	require.NoError(t, err)

	require.Len(t, col.Items, 3)
	assert.Equal(t, "p1", col.Items[0].Sys.ID)
	assert.Equal(t, "blogPost", col.Items[0].Sys.ContentTypeID())
	assert.Equal(t, "First", col.Items[0].Fields.Title)
	assert.Equal(t, "first", col.Items[0].Fields.Slug)
	assert.Equal(t, "Landing", col.Items[2].Fields.Title)
}

func TestMaterialize_DynamicTargets(t *testing.T) {
	t.Parallel()

	t.Run("entities", func(t *testing.T) {
		t.Parallel()

		col, err := delivery.Decode[*delivery.Entity]([]byte(blogDocument))
		require.NoError(t, err)

		assert.Same(t, col.Items[0].Link("author"), col.Items[1].Link("author"))
	})

	t.Run("maps", func(t *testing.T) {
		t.Parallel()

		col, err := delivery.Decode[map[string]any]([]byte(blogDocument))
		require.NoError(t, err)

		assert.Equal(t, "First", col.Items[0]["title"])
	})
}

func TestMaterialize_ValueStructCycle(t *testing.T) {
	t.Parallel()

	type personValue struct {
		Name  string `json:"name"`
		Posts []struct {
			Title  string       `json:"title"`
			Author *personValue `json:"author"`
		} `json:"posts"`
	}

	ada, err := delivery.MaterializeEntity[personValue](entityFrom(t, "ada"))
	require.NoError(t, err)

	assert.Equal(t, "Ada", ada.Name)
	require.Len(t, ada.Posts, 2)
	assert.Equal(t, "First", ada.Posts[0].Title)
	assert.Equal(t, "Second", ada.Posts[1].Title)

	inner := ada.Posts[0].Author
	require.NotNil(t, inner)
	assert.Same(t, inner, ada.Posts[1].Author)
	assert.Equal(t, "Ada", inner.Name)

	// p1 is already being filled by value higher up, so it stays zero here.
	require.Len(t, inner.Posts, 2)
	assert.Empty(t, inner.Posts[0].Title)
	assert.Equal(t, "Second", inner.Posts[1].Title)
	assert.Same(t, inner, inner.Posts[1].Author)
}

func TestMaterialize_Validation(t *testing.T) {
	t.Parallel()

	const invalid = `{"items": [
	  {"sys": {"id": "p1", "type": "Entry"}, "fields": {"title": "", "author": {"sys": {"type": "Link", "linkType": "Entry", "id": "nameless"}}}}
	], "includes": {"Entry": [{"sys": {"id": "nameless", "type": "Entry"}, "fields": {}}]}}`

	t.Run("disabled by default", func(t *testing.T) {
		t.Parallel()

		_, err := delivery.Decode[*blogPost]([]byte(invalid))
		require.NoError(t, err)
	})

	t.Run("reports the first failing resource", func(t *testing.T) {
		t.Parallel()

		_, err := delivery.Decode[*blogPost]([]byte(invalid), delivery.WithValidation())
		require.Error(t, err)

		var matErr *delivery.MaterializeError
		require.ErrorAs(t, err, &matErr)
		assert.Equal(t, "nameless", matErr.ID)

		var validationErrs validator.ValidationErrors
		require.ErrorAs(t, err, &validationErrs)
		assert.Equal(t, "Name", validationErrs[0].Field())
	})

	t.Run("whole node fields", func(t *testing.T) {
		t.Parallel()

		_, err := delivery.Decode[*delivery.Entry[postFields]]([]byte(invalid), delivery.WithValidator(validator.New()))
		require.Error(t, err)

		var validationErrs validator.ValidationErrors
		require.ErrorAs(t, err, &validationErrs)
		assert.Equal(t, "Title", validationErrs[0].Field())
	})
}

func TestMaterialize_ShapeMismatch(t *testing.T) {
	t.Parallel()

	doc := `{"items": [{"sys": {"id": "p1", "type": "Entry"}, "fields": {"tags": {"not": "a list"}}}]}`

	_, err := delivery.Decode[*blogPost]([]byte(doc))
	require.Error(t, err)

	var matErr *delivery.MaterializeError
	require.ErrorAs(t, err, &matErr)
	assert.Equal(t, "fields.tags", matErr.Path)
}

func TestMaterialize_MalformedIncludedAsset(t *testing.T) {
	t.Parallel()

	data := []byte(`{
	  "total": 1,
	  "items": [{"sys": {"id": "p1", "type": "Entry"}, "fields": {"title": "Hello"}}],
	  "includes": {"Asset": [
	    {"sys": {"id": "broken", "type": "Asset"}, "fields": {"file": "not-an-object"}},
	    {"sys": {"id": "logo", "type": "Asset"}, "fields": {"title": "Logo"}}
	  ]}
	}`)

	logger := &recordingLogger{}

	col, err := delivery.Decode[*delivery.Entity](data, delivery.WithLogger(logger))
	require.NoError(t, err)

	require.Len(t, col.Items, 1)
	assert.Empty(t, col.Unmapped)
	require.Len(t, col.IncludedAssets, 1)
	assert.Equal(t, "logo", col.IncludedAssets[0].Sys.ID)

	require.Contains(t, logger.messages, "Included asset does not fit Asset")

	for i, msg := range logger.messages {
		if msg == "Included asset does not fit Asset" {
			assert.Equal(t, "broken", logger.fields[i]["id"])
		}
	}
}

func TestMaterialize_NilInputs(t *testing.T) {
	t.Parallel()

	_, err := delivery.Materialize[*blogPost](nil)
	require.ErrorIs(t, err, delivery.ErrNilResolution)

	post, err := delivery.MaterializeEntity[*blogPost](nil)
	require.NoError(t, err)
	assert.Nil(t, post)

	_, err = delivery.MaterializeEntity[content](entityFrom(t, "ada"))
	require.ErrorIs(t, err, delivery.ErrUnmappedContentType)
}

func TestContentTypeRegistry(t *testing.T) {
	t.Parallel()

	registry := newBlogRegistry(t)

	typ, ok := registry.Resolve("person")
	require.True(t, ok)
	assert.Equal(t, reflect.TypeFor[*person](), typ)

	_, ok = registry.Resolve("page")
	assert.False(t, ok)

	assert.Equal(t, []string{"blogPost", "person"}, registry.ContentTypes())

	require.ErrorIs(t, registry.RegisterType("", reflect.TypeFor[person]()), delivery.ErrInvalidContentTypeMapping)
	require.ErrorIs(t, registry.RegisterType("nil", nil), delivery.ErrInvalidContentTypeMapping)
	require.ErrorIs(t, delivery.Register[string](registry, "scalar"), delivery.ErrInvalidContentTypeMapping)
}

func entityFrom(t *testing.T, id string) *delivery.Entity {
	t.Helper()

	res := delivery.Resolve(mustParse(t, blogDocument))

	entity, ok := res.Lookup(delivery.LinkTypeEntry, id)
	require.True(t, ok)

	return entity
}
