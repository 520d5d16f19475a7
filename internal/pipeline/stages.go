package pipeline

import "fmt"

// Stage identifies one step of the ingestion sequence, per §4.11. The
// sequence itself is fixed; execution modes only toggle which of the
// optional stages actually run their side effects (see stagesForMode).
type Stage int

const (
	StageUploadCheck Stage = iota
	StageUploadDocument
	StageExtractContent
	StageProcessImages
	StageClassifyDocument
	StageExtractMetadata
	StageStoreDocument
	StageProcessChunks
	StageGenerateEmbeddings
	StageFinalize
)

func (s Stage) String() string {
	switch s {
	case StageUploadCheck:
		return "upload_check"
	case StageUploadDocument:
		return "upload_document"
	case StageExtractContent:
		return "extract_content"
	case StageProcessImages:
		return "process_images"
	case StageClassifyDocument:
		return "classify_document"
	case StageExtractMetadata:
		return "extract_metadata"
	case StageStoreDocument:
		return "store_document"
	case StageProcessChunks:
		return "process_chunks"
	case StageGenerateEmbeddings:
		return "generate_embeddings"
	case StageFinalize:
		return "finalize"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// StageSet is a bitmask of optional stages that are actually enabled for a
// given execution mode. upload_check, upload_document, extract_content,
// store_document, and finalize are the fixed skeleton and always run;
// everything else is gated by this mask.
type StageSet uint16

func (m StageSet) has(s Stage) bool { return m&(1<<uint(s)) != 0 }

const allOptionalStages StageSet = 1<<StageProcessImages |
	1<<StageClassifyDocument | 1<<StageExtractMetadata |
	1<<StageProcessChunks | 1<<StageGenerateEmbeddings

// modeConfig is what an execution mode toggles: which optional stages run,
// and whether process_images additionally performs a vision call per image
// (distinct from the stage itself, since "demo" still extracts/uploads
// images but skips the vision analysis call).
type modeConfig struct {
	stages StageSet
	vision bool
}

// stagesForMode resolves one of the six named execution modes (§4.11) to
// its stage mask. The stage *sequence* never changes; only which optional
// stages run their side effect does, per spec's "the sequence is
// unchanged". image_only/embedding_only/classification_only split the
// pipeline at the natural seams (images vs. text-classification vs.
// chunk+embed) since the spec does not spell these three out further —
// decided and recorded in DESIGN.md.
func stagesForMode(mode string) (modeConfig, error) {
	switch mode {
	case "", "production", "full_test":
		return modeConfig{stages: allOptionalStages, vision: true}, nil
	case "demo":
		return modeConfig{
			stages: allOptionalStages &^ (1 << StageGenerateEmbeddings),
			vision: false,
		}, nil
	case "image_only":
		return modeConfig{stages: 1 << StageProcessImages}, nil
	case "embedding_only":
		return modeConfig{
			stages: 1<<StageClassifyDocument | 1<<StageExtractMetadata |
				1<<StageProcessChunks | 1<<StageGenerateEmbeddings,
		}, nil
	case "classification_only":
		return modeConfig{stages: 1<<StageClassifyDocument | 1<<StageExtractMetadata}, nil
	default:
		return modeConfig{}, fmt.Errorf("pipeline: unknown execution mode %q", mode)
	}
}
