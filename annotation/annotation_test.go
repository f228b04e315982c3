package annotation

import (
	"testing"

	"dentalscreen-api/constants"
	"dentalscreen-api/entities"

	"github.com/stretchr/testify/assert"
)

var stroke = Object{
	Kind:        constants.AntnKindStroke,
	Color:       "#e53935",
	StrokeWidth: 3,
	Points: []Point2D{
		{X: 10, Y: 10},
		{X: 20, Y: 15},
		{X: 30, Y: 12},
	},
}

var rectangle = Object{
	Kind:        constants.AntnKindRectangle,
	Color:       "#3949ab",
	StrokeWidth: 2,
	X:           40,
	Y:           40,
	Width:       120,
	Height:      80,
}

var circle = Object{
	Kind:        constants.AntnKindCircle,
	Color:       "#00897b",
	StrokeWidth: 2,
	CX:          200,
	CY:          150,
	Radius:      50,
}

var arrowGroup = Object{
	Kind:        constants.AntnKindArrowGroup,
	Color:       "#fb8c00",
	StrokeWidth: 2,
	Arrow: &Arrow{
		FromX:   100,
		FromY:   100,
		ToX:     220,
		ToY:     100,
		HeadLen: 14,
	},
}

func makeDocument() *Document {
	doc := NewDocument()
	doc.AddObject(stroke)
	doc.AddObject(rectangle)
	doc.AddObject(circle)
	doc.AddObject(arrowGroup)
	return doc
}

func TestAddObject(t *testing.T) {
	{
		doc := NewDocument()
		assert.Equal(t, true, doc.AddObject(stroke))
		assert.Equal(t, 1, doc.Len())
	}
	{
		doc := NewDocument()
		object := rectangle
		object.Width = -1
		assert.Equal(t, false, doc.AddObject(object))
		assert.Equal(t, 0, doc.Len())
	}
	{
		doc := NewDocument()
		object := circle
		object.Radius = -5
		assert.Equal(t, false, doc.AddObject(object))
	}
	{
		doc := NewDocument()
		object := stroke
		object.Points = nil
		assert.Equal(t, false, doc.AddObject(object))
	}
	{
		doc := NewDocument()
		object := Object{Kind: "SPLINE"}
		assert.Equal(t, false, doc.AddObject(object))
	}
}

func TestRemoveLast(t *testing.T) {
	{
		doc := makeDocument()
		doc.RemoveLast()
		assert.Equal(t, 3, doc.Len())
		assert.Equal(t, constants.AntnKindCircle, doc.Last().Kind)
	}
	// Removing from an empty document is a no-op, never an error.
	{
		doc := NewDocument()
		doc.RemoveLast()
		doc.RemoveLast()
		assert.Equal(t, 0, doc.Len())
	}
}

func TestClear(t *testing.T) {
	doc := makeDocument()
	doc.Clear()
	assert.Equal(t, 0, doc.Len())
	assert.Nil(t, doc.Last())
}

func TestSerializeRoundTrip(t *testing.T) {
	doc := makeDocument()

	blob, err := Serialize(doc)
	assert.Nil(t, err)

	parsed, err := Deserialize(blob)
	assert.Nil(t, err)
	assert.Equal(t, true, Equal(doc, parsed))

	blob2, err := Serialize(parsed)
	assert.Nil(t, err)
	assert.Equal(t, string(blob), string(blob2))
}

func TestSerializeDeterministic(t *testing.T) {
	doc := makeDocument()

	blob1, _ := Serialize(doc)
	blob2, _ := Serialize(doc)
	assert.Equal(t, string(blob1), string(blob2))
}

func TestSerializeStripsImageEntries(t *testing.T) {
	doc := makeDocument()
	doc.AddObject(Object{Kind: constants.AntnKindImage})
	assert.Equal(t, 5, doc.Len())

	blob, err := Serialize(doc)
	assert.Nil(t, err)

	parsed, err := Deserialize(blob)
	assert.Nil(t, err)
	assert.Equal(t, 4, parsed.Len())
	for _, object := range parsed.Objects {
		assert.NotEqual(t, constants.AntnKindImage, object.Kind)
	}
}

func TestDeserializeMalformed(t *testing.T) {
	check := func(blob string) {
		doc, err := Deserialize([]byte(blob))
		assert.Nil(t, doc)
		var mErr *entities.MalformedAnnotationError
		assert.ErrorAs(t, err, &mErr)
	}

	check("")
	check("not json at all")
	check("{\"somewhere\":\"else\"}")
	check("{\"objects\":[{\"kind\":\"SPLINE\"}]}")
	check("{\"objects\":[{\"kind\":\"RECTANGLE\",\"width\":-4}]}")
}

func TestClone(t *testing.T) {
	doc := makeDocument()
	cp := doc.Clone()

	assert.Equal(t, true, Equal(doc, cp))

	cp.Objects[0].Points[0].X = 999
	assert.Equal(t, 10.0, doc.Objects[0].Points[0].X)

	cp.Objects[3].Arrow.ToX = 999
	assert.Equal(t, 220.0, doc.Objects[3].Arrow.ToX)
}

func TestZOrderIsInsertionOrder(t *testing.T) {
	doc := NewDocument()
	doc.AddObject(rectangle)
	doc.AddObject(stroke)

	blob, _ := Serialize(doc)
	parsed, _ := Deserialize(blob)
	assert.Equal(t, constants.AntnKindRectangle, parsed.Objects[0].Kind)
	assert.Equal(t, constants.AntnKindStroke, parsed.Objects[1].Kind)
}
