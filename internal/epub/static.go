package epub

// Archive entry paths.
const (
	mimetypePath       = "mimetype"
	containerPath      = "META-INF/container.xml"
	displayOptionsPath = "META-INF/com.apple.ibooks.display-options.xml"
	packagePath        = "OEBPS/content.opf"
	ncxPath            = "OEBPS/toc.ncx"
	navPath            = "OEBPS/toc.xhtml"
	stylesheetPath     = "OEBPS/imagestyle.css"
	contentDir         = "OEBPS/"
)

// MediaType is the content of the mimetype entry.
const MediaType = "application/epub+zip"

const stylesheetHref = "imagestyle.css"

const containerXML = `<?xml version="1.0" encoding="utf-8"?>
<container xmlns="urn:oasis:names:tc:opendocument:xmlns:container" version="1.0">
  <rootfiles>
    <rootfile media-type="application/oebps-package+xml" full-path="OEBPS/content.opf"/>
  </rootfiles>
</container>
`

// displayOptionsXML asks Apple Books to render pages as fixed layout.
const displayOptionsXML = `<?xml version="1.0" encoding="UTF-8"?>
<display_options>
  <platform name="*">
    <option name="fixed-layout">true</option>
    <option name="open-to-spread">false</option>
  </platform>
</display_options>
`

// stylesheet makes the page image fill the viewport.
const stylesheet = `@page {
  padding: 0;
  margin: 0;
}
html,
body {
  padding: 0;
  margin: 0;
  height: 100%;
}
#image {
  width: 100%;
  height: 100%;
  display: block;
  margin: 0;
  padding: 0;
}
`
