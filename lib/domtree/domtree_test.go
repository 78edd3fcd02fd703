package domtree

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const testPage = `
<html>
<body>
  <div id="main" class="wrap outer">
    <h1>Algorithms</h1>
    <table>
      <tbody>
        <tr><td><a href="/courses/101/assignments/7">HW 1</a></td><td>Jan 27 at 11:59PM</td></tr>
        <tr><td><a href="/courses/101/assignments/8">HW 2</a></td><td>Feb 3 at 11:59PM</td></tr>
      </tbody>
    </table>
  </div>
  <script>var ignored = true;</script>
</body>
</html>`

func TestParseAndQuery(t *testing.T) {
	root, err := ParseString(testPage)
	require.NoError(t, err)

	main := root.Find(func(n *Node) bool { return n.Attr("id") == "main" })
	require.NotNil(t, main)
	require.True(t, main.HasClass("wrap"))
	require.True(t, main.HasClass("outer"))
	require.False(t, main.HasClass("wra"))

	h1 := root.Find(ByTag("h1"))
	require.NotNil(t, h1)
	require.Equal(t, "Algorithms", h1.Text())

	rows := root.FindAll(ByTag("tr"))
	require.Len(t, rows, 2)
	require.Equal(t, "HW 1 Jan 27 at 11:59PM", rows[0].Text())

	// script content must not leak into text
	require.NotContains(t, root.Text(), "ignored")
}

func TestLines(t *testing.T) {
	root, err := ParseString(`<div><span>Homework 3</span><div>Due: Jan 27 at 11:59PM</div><div>Released: Jan 13</div></div>`)
	require.NoError(t, err)

	got := root.Body().Lines()
	want := []string{"Homework 3", "Due: Jan 27 at 11:59PM", "Released: Jan 13"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestClosestAndSiblings(t *testing.T) {
	root, err := ParseString(`
		<ul>
			<li id="a">one</li>
			<li id="b"><span><a href="/x">link</a></span></li>
		</ul>`)
	require.NoError(t, err)

	a := root.Find(ByTag("a"))
	require.NotNil(t, a)

	li := a.Closest(ByTag("li"))
	require.NotNil(t, li)
	require.Equal(t, "b", li.Attr("id"))

	prev := li.PrevSibling()
	require.NotNil(t, prev)
	require.Equal(t, "a", prev.Attr("id"))
	require.Nil(t, prev.PrevSibling())
}

func TestDecodeJSON(t *testing.T) {
	data := []byte(`{
		"tag": "body",
		"rect": {"x": 0, "y": 0, "width": 1280, "height": 2000},
		"children": [
			{
				"tag": "a",
				"attrs": {"href": "/courses/101"},
				"rect": {"x": 20, "y": 130, "width": 320, "height": 96},
				"children": [{"tag": "", "text": "Algorithms"}]
			}
		]
	}`)

	root, err := DecodeJSON(data)
	require.NoError(t, err)

	anchor := root.Find(ByTag("a"))
	require.NotNil(t, anchor)
	require.Equal(t, "Algorithms", anchor.Text())
	require.Equal(t, root, anchor.Parent)
	require.False(t, anchor.Rect.Zero())
	require.Equal(t, 320.0, anchor.Rect.Width)
}
