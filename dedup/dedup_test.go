package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/railtrips/trips"
)

func rec(last, first, ref, from, to string) trips.TripRecord {
	return trips.TripRecord{
		Traveler:    trips.TravelerKey{LastName: last, FirstName: first},
		Reference:   ref,
		Origin:      from,
		Destination: to,
	}
}

func TestRun_DropsLegsRepeatedUnderLaterReference(t *testing.T) {
	in := []trips.TripRecord{
		rec("Dupont", "Emile", "A", "Paris", "Lyon"),
		rec("Dupont", "Emile", "B", "Paris", "Lyon"),
		rec("Dupont", "Emile", "B", "Lyon", "Paris"),
	}
	res := Run(in)

	assert.Equal(t, []trips.TripRecord{in[0], in[2]}, res.Kept)
	require.Len(t, res.Duplicates, 1)
	assert.Equal(t, 1, res.Duplicates[0].Index)
	assert.Equal(t, "A", res.Duplicates[0].KeptReference)
	assert.Equal(t, trips.StageStats{Stage: "dedup", Succeeded: 2, Skipped: 1}, res.Stats())
}

func TestRun_KeepsLegsSharingReference(t *testing.T) {
	in := []trips.TripRecord{
		rec("Martin", "Lea", "R1", "Paris", "Lyon"),
		rec("Martin", "Lea", "R1", "Paris", "Lyon"),
		rec("Martin", "Lea", "R1", "Lyon", "Paris"),
	}
	res := Run(in)
	assert.Equal(t, in, res.Kept)
	assert.Empty(t, res.Duplicates)
}

func TestRun_FirstSeenReferenceWins(t *testing.T) {
	in := []trips.TripRecord{
		rec("Martin", "Lea", "R2", "Paris", "Lyon"),
		rec("Martin", "Lea", "R1", "Paris", "Lyon"),
		rec("Martin", "Lea", "R2", "Paris", "Lyon"),
	}
	res := Run(in)
	assert.Equal(t, []trips.TripRecord{in[0], in[2]}, res.Kept)
	require.Len(t, res.Duplicates, 1)
	assert.Equal(t, "R1", res.Duplicates[0].Record.Reference)
}

func TestRun_NormalizesNamesCitiesAndReferences(t *testing.T) {
	in := []trips.TripRecord{
		rec("Dupont", "Émile", "ab12", "Saint-Étienne", "Lyon Part-Dieu"),
		rec("DUPONT", "Emile", "CD34", "SAINT ETIENNE", "lyon part dieu"),
		rec("DUPONT", "Emile", " AB12 ", "saint etienne", "LYON PART DIEU"),
	}
	res := Run(in)
	assert.Equal(t, []trips.TripRecord{in[0], in[2]}, res.Kept)
	assert.Len(t, res.Duplicates, 1)
}

func TestRun_DirectionMatters(t *testing.T) {
	in := []trips.TripRecord{
		rec("Dupont", "Emile", "A", "Paris", "Lyon"),
		rec("Dupont", "Emile", "B", "Lyon", "Paris"),
	}
	assert.Len(t, Run(in).Kept, 2)
}

func TestRun_TravelersAreIndependent(t *testing.T) {
	in := []trips.TripRecord{
		rec("Dupont", "Emile", "A", "Paris", "Lyon"),
		rec("Durand", "Paul", "B", "Paris", "Lyon"),
	}
	assert.Len(t, Run(in).Kept, 2)
}

func TestRun_PassThroughAndRejects(t *testing.T) {
	in := []trips.TripRecord{
		rec("Dupont", "Emile", "A", "Paris", "paris"),
		rec("Dupont", "Emile", "B", "PARIS", "Paris"),
		rec("Dupont", "Emile", "A", "NOT FOUND", "Lyon"),
		rec("Dupont", "Emile", "B", "not found", "Lyon"),
		rec("", "", "C", "Paris", "Lyon"),
		rec("Dupont", "Emile", "  ", "Paris", "Lyon"),
	}
	res := Run(in)

	assert.Equal(t, in[:4], res.Kept)
	require.Len(t, res.Rejected, 2)
	assert.Equal(t, 4, res.Rejected[0].Index)
	assert.Equal(t, "traveler", res.Rejected[0].Field)
	assert.Equal(t, "reference", res.Rejected[1].Field)
	assert.Equal(t, 2, res.Stats().Skipped)
}

func TestRun_Empty(t *testing.T) {
	res := Run(nil)
	assert.Empty(t, res.Kept)
	assert.Equal(t, 0, res.Stats().Total())
}
