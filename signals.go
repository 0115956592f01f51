package noetic

import "github.com/zoobzio/capitan"

// Signal definitions for noetic's core events. Signals follow the pattern
// noetic.<entity>.<event>, the same vocabulary style as cogito's
// cogito.<entity>.<event>. Component packages (jobs, search) define their
// own signals and field keys following this same pattern rather than
// importing this package's vars, since each is its own small
// capability-bundle per entity family.
var (
	// Note lifecycle signals.
	NoteCreated = capitan.NewSignal(
		"noetic.note.created",
		"New note persisted with its initial revision",
	)
	NoteOriginalUpdated = capitan.NewSignal(
		"noetic.note.original_updated",
		"Note's user-authored original content replaced",
	)
	NoteRevisionAppended = capitan.NewSignal(
		"noetic.note.revision_appended",
		"New revision appended to a note's history",
	)
	NoteStatusChanged = capitan.NewSignal(
		"noetic.note.status_changed",
		"Note starred/archived flags changed",
	)
	NoteSoftDeleted = capitan.NewSignal(
		"noetic.note.soft_deleted",
		"Note marked deleted, reversibly",
	)
	NoteRestored = capitan.NewSignal(
		"noetic.note.restored",
		"Soft-deleted note undeleted",
	)
	NotePurged = capitan.NewSignal(
		"noetic.note.purged",
		"Note and all its artifacts permanently removed",
	)

	// Concept graph signals.
	ConceptCreated = capitan.NewSignal(
		"noetic.concept.created",
		"New SKOS concept created with its preferred label",
	)
	ConceptTagged = capitan.NewSignal(
		"noetic.concept.tagged",
		"Note associated with a concept via tagging",
	)
	RelationAdded = capitan.NewSignal(
		"noetic.concept.relation_added",
		"Relation added between two concepts",
	)

	// Archive lifecycle signals.
	ArchiveProvisioned = capitan.NewSignal(
		"noetic.archive.provisioned",
		"New archive schema created",
	)
)

// Field keys shared across components.
var (
	FieldNoteID      = capitan.NewStringKey("note_id")
	FieldArchive     = capitan.NewStringKey("archive")
	FieldOp          = capitan.NewStringKey("op")
	FieldError       = capitan.NewErrorKey("error")
	FieldDuration    = capitan.NewDurationKey("duration")
	FieldRevisionNum = capitan.NewIntKey("revision_number")
	FieldAgent       = capitan.NewStringKey("agent")
	FieldConceptID   = capitan.NewStringKey("concept_id")
	FieldSchemeID    = capitan.NewStringKey("scheme_id")
	FieldTagText     = capitan.NewStringKey("tag_text")
)
