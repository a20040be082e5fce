package printing

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"strconv"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

const emuPerInch = 914400

// emu converts hundredths of an inch to English Metric Units
func emu(hundredths int64) int64 {
	return hundredths * emuPerInch / 100
}

// anchor places one picture at a fixed offset from the page corner.
// Sizes and offsets are in hundredths of an inch.
type anchor struct {
	name           string
	size           int64
	x, y           int64
	relativeHeight int
	docPrID        int
}

var (
	stampAnchor     = anchor{name: "stamp", size: 217, x: 509, y: 664, relativeHeight: 251, docPrID: 1}
	signatureAnchor = anchor{name: "signature", size: 192, x: 564, y: 811, relativeHeight: 252, docPrID: 2}
)

// paidOverlay stamps a paid invoice with the stamp and signature images
type paidOverlay struct {
	images       ImageSource
	stampURL     string
	signatureURL string
	tempDir      string
	logger       *zap.Logger
}

// apply anchors the stamp and the signature after the last body paragraph
func (o *paidOverlay) apply(ctx context.Context, d *invoiceDocument) error {
	if err := o.addPictures(ctx, d); err != nil {
		return NewRenderError(ErrCodeOverlayFailed, "Failed to add stamp and signature", err)
	}
	return nil
}

func (o *paidOverlay) addPictures(ctx context.Context, d *invoiceDocument) error {
	if o.images == nil {
		return fmt.Errorf("no image source configured")
	}

	stamp, err := o.images.Fetch(ctx, o.stampURL)
	if err != nil {
		return err
	}
	signature, err := o.images.Fetch(ctx, o.signatureURL)
	if err != nil {
		return err
	}

	stampPNG, err := o.stage(stampAnchor.name, stamp)
	if err != nil {
		return err
	}
	signaturePNG, err := o.stage(signatureAnchor.name, signature)
	if err != nil {
		return err
	}

	for _, pic := range []struct {
		anchor anchor
		data   []byte
	}{
		{stampAnchor, stampPNG},
		{signatureAnchor, signaturePNG},
	} {
		relID, err := d.pkg.addImage(pic.data)
		if err != nil {
			return fmt.Errorf("embed %s image: %w", pic.anchor.name, err)
		}
		d.appendParagraph(anchorParagraph(pic.anchor, relID))
	}

	o.logger.Debug("paid overlay added")
	return nil
}

// stage re-encodes an image as PNG through a temp file on disk and
// returns the PNG bytes. The temp file is removed before returning.
func (o *paidOverlay) stage(name string, data []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s image: %w", name, err)
	}

	tmp, err := os.CreateTemp(o.tempDir, name+"-*.png")
	if err != nil {
		return nil, fmt.Errorf("create %s temp file: %w", name, err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("encode %s image: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("write %s temp file: %w", name, err)
	}

	staged, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s temp file %s is not readable: %w", name, path, err)
	}

	o.logger.Debug("staged overlay image",
		zap.String("image", name),
		zap.String("source_format", format),
		zap.Int("bytes", len(staged)))
	return staged, nil
}

// anchorParagraph builds a paragraph holding a floating picture anchored
// to the page, wrapped top and bottom
func anchorParagraph(a anchor, relID string) *etree.Element {
	size := strconv.FormatInt(emu(a.size), 10)
	docPrID := strconv.Itoa(a.docPrID)
	picName := "Picture " + docPrID

	p := etree.NewElement("w:p")
	drawing := p.CreateElement("w:r").CreateElement("w:drawing")
	drawing.CreateAttr("xmlns:wp", nsWP)
	drawing.CreateAttr("xmlns:a", nsA)
	drawing.CreateAttr("xmlns:pic", nsPic)
	drawing.CreateAttr("xmlns:r", nsR)

	anc := drawing.CreateElement("wp:anchor")
	for _, attr := range [][2]string{
		{"distT", "0"}, {"distB", "0"}, {"distL", "0"}, {"distR", "0"},
		{"simplePos", "0"},
		{"relativeHeight", strconv.Itoa(a.relativeHeight)},
		{"behindDoc", "0"},
		{"locked", "0"},
		{"layoutInCell", "1"},
		{"allowOverlap", "1"},
	} {
		anc.CreateAttr(attr[0], attr[1])
	}

	simplePos := anc.CreateElement("wp:simplePos")
	simplePos.CreateAttr("x", "0")
	simplePos.CreateAttr("y", "0")

	posH := anc.CreateElement("wp:positionH")
	posH.CreateAttr("relativeFrom", "page")
	posH.CreateElement("wp:posOffset").SetText(strconv.FormatInt(emu(a.x), 10))

	posV := anc.CreateElement("wp:positionV")
	posV.CreateAttr("relativeFrom", "page")
	posV.CreateElement("wp:posOffset").SetText(strconv.FormatInt(emu(a.y), 10))

	extent := anc.CreateElement("wp:extent")
	extent.CreateAttr("cx", size)
	extent.CreateAttr("cy", size)

	effect := anc.CreateElement("wp:effectExtent")
	for _, side := range []string{"l", "t", "r", "b"} {
		effect.CreateAttr(side, "0")
	}

	anc.CreateElement("wp:wrapTopAndBottom")

	docPr := anc.CreateElement("wp:docPr")
	docPr.CreateAttr("id", docPrID)
	docPr.CreateAttr("name", picName)

	anc.CreateElement("wp:cNvGraphicFramePr")

	graphicData := anc.CreateElement("a:graphic").CreateElement("a:graphicData")
	graphicData.CreateAttr("uri", nsPic)
	pic := graphicData.CreateElement("pic:pic")

	nvPicPr := pic.CreateElement("pic:nvPicPr")
	cNvPr := nvPicPr.CreateElement("pic:cNvPr")
	cNvPr.CreateAttr("id", "0")
	cNvPr.CreateAttr("name", a.name+".png")
	nvPicPr.CreateElement("pic:cNvPicPr")

	blipFill := pic.CreateElement("pic:blipFill")
	blipFill.CreateElement("a:blip").CreateAttr("r:embed", relID)
	blipFill.CreateElement("a:stretch").CreateElement("a:fillRect")

	spPr := pic.CreateElement("pic:spPr")
	xfrm := spPr.CreateElement("a:xfrm")
	off := xfrm.CreateElement("a:off")
	off.CreateAttr("x", "0")
	off.CreateAttr("y", "0")
	ext := xfrm.CreateElement("a:ext")
	ext.CreateAttr("cx", size)
	ext.CreateAttr("cy", size)
	geom := spPr.CreateElement("a:prstGeom")
	geom.CreateAttr("prst", "rect")
	geom.CreateElement("a:avLst")

	return p
}
