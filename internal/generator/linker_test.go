package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IBM/igc-x-json-schema/api/igc"
	"github.com/IBM/igc-x-json-schema/internal/jsonschema"
)

func TestLinkAssociation(t *testing.T) {
	t.Parallel()

	customer := newTerm("t-cust", "Customer", "Sales")
	product := newTerm("t-prod", "Product", "Sales")
	purchase := newTerm("t-purch", "Purchase", "Sales")
	purchase.RelatedTerms = igc.ReferenceList{Items: []igc.Item{ref(&customer), ref(&product)}}

	store := jsonschema.NewMemoryStore()
	session := newTestSession(store, nil)
	session.AddTerms([]igc.Term{customer, product, purchase})
	require.NoError(t, session.Compile())
	require.NoError(t, session.Link())

	custDoc, err := store.Get(testPrefix + "/Sales/Customer")
	require.NoError(t, err)
	purchaseProp := custDoc.Properties["purchase"]
	require.NotNil(t, purchaseProp, "customer gains the association property")
	assert.Equal(t, "object", purchaseProp.Type)
	require.Contains(t, purchaseProp.Properties, "product")
	assert.Equal(t, testPrefix+"/Sales/Product", purchaseProp.Properties["product"].Ref)
	assert.NotContains(t, purchaseProp.Properties, "customer", "no self-referencing ref")

	prodDoc, err := store.Get(testPrefix + "/Sales/Product")
	require.NoError(t, err)
	require.Contains(t, prodDoc.Properties, "purchase")
	assert.Equal(t, testPrefix+"/Sales/Customer", prodDoc.Properties["purchase"].Properties["customer"].Ref)
}

func TestLinkForcesNonObjectIntoObject(t *testing.T) {
	t.Parallel()

	// Remark compiles as a bare string; linking must reopen it as an object.
	remark := newTerm("t-remark", "Remark", "Sales")
	order := newTerm("t-order", "Order", "Sales")
	note := newTerm("t-note", "Annotation", "Sales")
	note.RelatedTerms = igc.ReferenceList{Items: []igc.Item{ref(&remark), ref(&order)}}

	store := jsonschema.NewMemoryStore()
	session := newTestSession(store, nil)
	session.AddTerms([]igc.Term{remark, order, note})
	require.NoError(t, session.Compile())
	require.NoError(t, session.Link())

	doc, err := store.Get(testPrefix + "/Sales/Remark")
	require.NoError(t, err)
	assert.Equal(t, "object", doc.Type)
	require.Contains(t, doc.Properties, "annotation")
	assert.Equal(t, testPrefix+"/Sales/Order", doc.Properties["annotation"].Properties["order"].Ref)
}

func TestLinkTaxonomyAncestorExclusion(t *testing.T) {
	t.Parallel()

	vehicle := newTerm("t-vehicle", "Vehicle", "Fleet")
	car := newTerm("t-car", "Car", "Fleet")
	car.IsATypeOf = igc.ReferenceList{Items: []igc.Item{ref(&vehicle)}}
	driver := newTerm("t-driver", "Driver", "Fleet")
	assignment := newTerm("t-assign", "Assignment", "Fleet")
	assignment.RelatedTerms = igc.ReferenceList{Items: []igc.Item{ref(&vehicle), ref(&car), ref(&driver)}}

	store := jsonschema.NewMemoryStore()
	session := newTestSession(store, nil)
	session.AddTerms([]igc.Term{vehicle, car, driver, assignment})
	require.NoError(t, session.Compile())
	require.NoError(t, session.Link())

	// Car must not gain a ref back to its ancestor Vehicle.
	carDoc, err := store.Get(testPrefix + "/Fleet/Car")
	require.NoError(t, err)
	carAssign := carDoc.Properties["assignment"]
	require.NotNil(t, carAssign)
	assert.NotContains(t, carAssign.Properties, "vehicle")
	assert.Contains(t, carAssign.Properties, "driver")

	// Vehicle still refs Car: Car is not an ancestor of Vehicle.
	vehDoc, err := store.Get(testPrefix + "/Fleet/Vehicle")
	require.NoError(t, err)
	assert.Contains(t, vehDoc.Properties["assignment"].Properties, "car")
	assert.Contains(t, vehDoc.Properties["assignment"].Properties, "driver")
}

func TestLinkTaxonomyCycleTerminates(t *testing.T) {
	t.Parallel()

	// Cyclic taxonomy: A is-a-type-of B, B is-a-type-of A. The walk must
	// terminate via the visited set.
	a := newTerm("t-a", "Alpha", "Cyc")
	b := newTerm("t-b", "Beta", "Cyc")
	a.IsATypeOf = igc.ReferenceList{Items: []igc.Item{ref(&b)}}
	b.IsATypeOf = igc.ReferenceList{Items: []igc.Item{ref(&a)}}
	link := newTerm("t-link", "Pairing", "Cyc")
	link.RelatedTerms = igc.ReferenceList{Items: []igc.Item{ref(&a), ref(&b)}}

	store := jsonschema.NewMemoryStore()
	session := newTestSession(store, nil)
	session.AddTerms([]igc.Term{a, b, link})
	require.NoError(t, session.Compile())
	require.NoError(t, session.Link())

	// Both directions excluded: each is the other's (cyclic) ancestor.
	aDoc, err := store.Get(testPrefix + "/Cyc/Alpha")
	require.NoError(t, err)
	if prop := aDoc.Properties["pairing"]; prop != nil {
		assert.NotContains(t, prop.Properties, "beta")
	}
}

func TestLinkAssociationWithOwnProperties(t *testing.T) {
	t.Parallel()

	// The association itself carries containment, so it was compiled as an
	// ordinary object and its properties are inherited by every member.
	qty := newTerm("t-qty", "Quantity", "Sales")
	customer := newTerm("t-cust", "Customer", "Sales")
	product := newTerm("t-prod", "Product", "Sales")
	purchase := newTerm("t-purch", "Purchase", "Sales")
	purchase.HasA = igc.ReferenceList{Items: []igc.Item{ref(&qty)}}
	purchase.RelatedTerms = igc.ReferenceList{Items: []igc.Item{ref(&customer), ref(&product)}}

	store := jsonschema.NewMemoryStore()
	session := newTestSession(store, nil)
	session.AddTerms([]igc.Term{qty, customer, product, purchase})
	require.NoError(t, session.Compile())

	// With containment edges the association degrades to an ordinary object
	// document in phase one.
	_, err := store.Get(testPrefix + "/Sales/Purchase")
	require.NoError(t, err)

	require.NoError(t, session.Link())

	custDoc, err := store.Get(testPrefix + "/Sales/Customer")
	require.NoError(t, err)
	prop := custDoc.Properties["purchase"]
	require.NotNil(t, prop)
	assert.Contains(t, prop.Properties, "quantity", "association's own properties are inherited")
	assert.Contains(t, prop.Properties, "product")
}

func TestLinkMergesBasePropsIntoExistingProperty(t *testing.T) {
	t.Parallel()

	// Customer already gained a "purchase" property in phase one through
	// containment; linking must still fold the association's own properties
	// into it rather than skipping them.
	qty := newTerm("t-qty", "Quantity", "Sales")
	purchase := newTerm("t-purch", "Purchase", "Sales")
	customer := newTerm("t-cust", "Customer", "Sales")
	customer.HasA = igc.ReferenceList{Items: []igc.Item{ref(&purchase)}}
	product := newTerm("t-prod", "Product", "Sales")
	purchase.HasA = igc.ReferenceList{Items: []igc.Item{ref(&qty)}}
	purchase.RelatedTerms = igc.ReferenceList{Items: []igc.Item{ref(&customer), ref(&product)}}

	store := jsonschema.NewMemoryStore()
	session := newTestSession(store, nil)
	session.AddTerms([]igc.Term{qty, purchase, customer, product})
	require.NoError(t, session.Compile())
	require.NoError(t, session.Link())

	custDoc, err := store.Get(testPrefix + "/Sales/Customer")
	require.NoError(t, err)
	prop := custDoc.Properties["purchase"]
	require.NotNil(t, prop)
	assert.Equal(t, testPrefix+"/Sales/Purchase", prop.Ref, "the phase-one containment ref survives")
	assert.Contains(t, prop.Properties, "quantity", "association's own properties merged into the existing property")
	assert.Contains(t, prop.Properties, "product")
}

func TestLinkSkipsUnprocessedMembers(t *testing.T) {
	t.Parallel()

	customer := newTerm("t-cust", "Customer", "Sales")
	pairing := newTerm("t-pair", "Pairing", "Sales")
	pairing.RelatedTerms = igc.ReferenceList{Items: []igc.Item{
		ref(&customer),
		{ID: "t-ghost", Name: "Ghost"},
	}}

	store := jsonschema.NewMemoryStore()
	session := newTestSession(store, nil)
	session.AddTerms([]igc.Term{customer, pairing})
	require.NoError(t, session.Compile())
	require.NoError(t, session.Link())

	// Only one resolvable member: nothing gets linked, and the run survives.
	doc, err := store.Get(testPrefix + "/Sales/Customer")
	require.NoError(t, err)
	assert.NotContains(t, doc.Properties, "pairing")
}

func TestLinkIdempotent(t *testing.T) {
	t.Parallel()

	customer := newTerm("t-cust", "Customer", "Sales")
	product := newTerm("t-prod", "Product", "Sales")
	purchase := newTerm("t-purch", "Purchase", "Sales")
	purchase.RelatedTerms = igc.ReferenceList{Items: []igc.Item{ref(&customer), ref(&product)}}

	store := jsonschema.NewMemoryStore()
	session := newTestSession(store, nil)
	session.AddTerms([]igc.Term{customer, product, purchase})
	require.NoError(t, session.Compile())
	require.NoError(t, session.Link())

	before, err := store.Get(testPrefix + "/Sales/Customer")
	require.NoError(t, err)

	require.NoError(t, session.Link())
	after, err := store.Get(testPrefix + "/Sales/Customer")
	require.NoError(t, err)
	assert.Equal(t, before, after, "re-linking must not grow the document")
}
